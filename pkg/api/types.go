// Package api is the HTTP client for the student assistant backend.
package api

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ChatResponse is the /api/chat reply. Unknown fields such as subcategory or
// sentiment are ignored.
type ChatResponse struct {
	Response   string   `json:"response"`
	Category   string   `json:"category,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type QuickAction struct {
	Icon     string `json:"icon"`
	Text     string `json:"text"`
	Color    string `json:"color"`
	Category string `json:"category,omitempty"`
}

type quickActionsResponse struct {
	Actions []QuickAction `json:"actions"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type Health struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Version   string `json:"version,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Database  string `json:"database,omitempty"`
}
