package research

// Claim is one assertion extracted from the final answer. EvidenceIDs are
// 1-based indexes into the source block's chunk list. Verified is true only
// when the model asserted it and at least one in-range evidence id remains
// after filtering.
type Claim struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	EvidenceIDs []int  `json:"evidence_ids"`
	Verified    bool   `json:"verified"`
}
