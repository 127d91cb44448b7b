package research

// Evidence is a structural pointer into a source: a page region in a
// document, or a span of a transcript. All fields are optional; an empty
// Evidence is legal but carries no information.
type Evidence struct {
	Page       *int      `json:"page,omitempty"`
	TotalPages *int      `json:"total_pages,omitempty"`
	BBox       []float64 `json:"bbox,omitempty"` // [x0, y0, x1, y1]

	TimecodeStart *float64 `json:"timecode_start,omitempty"`
	TimecodeEnd   *float64 `json:"timecode_end,omitempty"`

	TimestampStart *float64 `json:"timestamp_start,omitempty"`
	TimestampEnd   *float64 `json:"timestamp_end,omitempty"`
}

// Equal reports structural equality over the full field tuple.
func (e Evidence) Equal(other Evidence) bool {
	if !intPtrEqual(e.Page, other.Page) || !intPtrEqual(e.TotalPages, other.TotalPages) {
		return false
	}
	if !floatSliceEqual(e.BBox, other.BBox) {
		return false
	}
	return floatPtrEqual(e.TimecodeStart, other.TimecodeStart) &&
		floatPtrEqual(e.TimecodeEnd, other.TimecodeEnd) &&
		floatPtrEqual(e.TimestampStart, other.TimestampStart) &&
		floatPtrEqual(e.TimestampEnd, other.TimestampEnd)
}

// Empty reports whether no field is set.
func (e Evidence) Empty() bool {
	return e.Page == nil && e.TotalPages == nil && len(e.BBox) == 0 &&
		e.TimecodeStart == nil && e.TimecodeEnd == nil &&
		e.TimestampStart == nil && e.TimestampEnd == nil
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func floatSliceEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
