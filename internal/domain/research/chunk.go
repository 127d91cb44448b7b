package research

// ChunkMetadata describes where a chunk came from. Flat evidence fields
// (page, bbox, timecodes) may arrive here from older tool payloads; the
// evidence normalizer lifts them into the chunk's Evidence list.
type ChunkMetadata struct {
	URL    string `json:"url,omitempty"`
	Title  string `json:"title,omitempty"`
	Source string `json:"source,omitempty"`
	FileID string `json:"file_id,omitempty"`

	Page       *int      `json:"page,omitempty"`
	TotalPages *int      `json:"total_pages,omitempty"`
	BBox       []float64 `json:"bbox,omitempty"`

	TimecodeStart *float64 `json:"timecode_start,omitempty"`
	TimecodeEnd   *float64 `json:"timecode_end,omitempty"`

	// Legacy single-field transcript offset; aliased to TimestampStart.
	Timestamp      *float64 `json:"timestamp,omitempty"`
	TimestampStart *float64 `json:"timestamp_start,omitempty"`
	TimestampEnd   *float64 `json:"timestamp_end,omitempty"`
}

// Chunk is one retrieved search finding: content, provenance metadata and
// zero or more structural evidence pointers into the source.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Evidence []Evidence    `json:"evidence,omitempty"`
}
