package assistant

// Status is the outcome of a modify or create request.
type Status string

const (
	StatusModified           Status = "modified"
	StatusCreated            Status = "created"
	StatusNoProject          Status = "no_project"
	StatusNotFound           Status = "not_found"
	StatusAlreadyExists      Status = "already_exists"
	StatusRestoredAfterError Status = "restored_after_error"
	StatusFailed             Status = "failed"
)

// Result describes what a mutation did. Err is set for restored_after_error
// and failed.
type Result struct {
	Status  Status
	Path    string
	Message string
	Err     error
}

// Succeeded reports whether the file was written.
func (r Result) Succeeded() bool {
	return r.Status == StatusModified || r.Status == StatusCreated
}
