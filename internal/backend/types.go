package backend

// GenerateRequest describes one generation submission. An empty Framework
// asks the backend to auto-select.
type GenerateRequest struct {
	Prompt    string
	Framework string
}

type generateBody struct {
	Prompt          string       `json:"prompt"`
	UserPreferences *preferences `json:"user_preferences"`
	UserID          string       `json:"user_id,omitempty"`
}

type preferences struct {
	Framework string `json:"framework"`
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	GenerationID  string `json:"generation_id"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	EstimatedTime *int   `json:"estimated_time,omitempty"`
}

// Framework is a selectable code-generation target.
type Framework struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Category is an application category known to the backend.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// HistoryEntry is one past generation as reported by GET /history.
type HistoryEntry struct {
	ID              string       `json:"id"`
	AppName         string       `json:"app_name,omitempty"`
	Prompt          string       `json:"prompt"`
	Framework       string       `json:"framework,omitempty"`
	Status          string       `json:"status"`
	CreatedAt       string       `json:"created_at"`
	Error           string       `json:"error,omitempty"`
	UserPreferences *preferences `json:"user_preferences,omitempty"`
}

// RequestedFramework returns the framework the entry was built with, or the
// one that was requested when the build never got that far.
func (e HistoryEntry) RequestedFramework() string {
	if e.Framework != "" {
		return e.Framework
	}
	if e.UserPreferences != nil {
		return e.UserPreferences.Framework
	}
	return ""
}

// GenerationStatus is returned by GET /status/{id}.
type GenerationStatus struct {
	GenerationID       string `json:"generation_id"`
	Status             string `json:"status"`
	Progress           int    `json:"progress"`
	CurrentStage       string `json:"current_stage"`
	EstimatedRemaining *int   `json:"estimated_remaining,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Health is returned by GET /health.
type Health struct {
	Status               string `json:"status"`
	Timestamp            string `json:"timestamp"`
	ActiveGenerations    int    `json:"active_generations"`
	CompletedGenerations int    `json:"completed_generations"`
	EngineStatus         string `json:"engine_status"`
}

type frameworksEnvelope struct {
	Frameworks []Framework `json:"frameworks"`
}

type categoriesEnvelope struct {
	Categories []Category `json:"categories"`
}

type historyEnvelope struct {
	Generations []HistoryEntry `json:"generations"`
	Total       int            `json:"total"`
}
