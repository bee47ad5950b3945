package models

// Submission is raw content handed over by the submission layer.
type Submission struct {
	Text   string
	Images [][]byte
}

// IsEmpty reports whether there is nothing to moderate.
func (s Submission) IsEmpty() bool {
	return s.Text == "" && len(s.Images) == 0
}

// Job represents a submission file to be moderated by a worker
type Job struct {
	Path      string
	ContentID string
}
