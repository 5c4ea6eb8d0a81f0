package types

// PaperSelector identifies a paper by exactly one of its public identifiers:
// the Semantic Scholar id or the arXiv id.
type PaperSelector struct {
	ArxivID string `json:"arxiv_id,omitempty"`
	S2ID    string `json:"s2_id,omitempty"`
}

// Validate checks that exactly one identifying key is set.
func (s PaperSelector) Validate() error {
	if (s.ArxivID == "") == (s.S2ID == "") {
		return ErrInvalidSelector
	}
	return nil
}

// String returns the selector's identifying key for logs and messages.
func (s PaperSelector) String() string {
	if s.ArxivID != "" {
		return "arxiv:" + s.ArxivID
	}
	if s.S2ID != "" {
		return "s2:" + s.S2ID
	}
	return "(empty selector)"
}
