package generation

// Status is the lifecycle state of a generation session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further events may change the session.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StageCompleted is the stage label forced by a completed event.
const StageCompleted = "Completed"

// Session is a snapshot of one generation run.
type Session struct {
	ID           string `json:"id,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	Framework    string `json:"framework,omitempty"` // empty = auto-select
	Status       Status `json:"status"`
	RemoteStatus string `json:"remote_status,omitempty"`
	Progress     int    `json:"progress"`
	Stage        string `json:"current_stage,omitempty"`
	Error        string `json:"error,omitempty"`
	DownloadURL  string `json:"download_url,omitempty"`
	AppName      string `json:"app_name,omitempty"`
	// Validation holds the last rejected Submit's message. It does not
	// change Status and is cleared by the next accepted Submit or Reset.
	Validation string `json:"validation_error,omitempty"`
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
