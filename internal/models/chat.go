package models

// Intent is the classified purpose of a chat message
type Intent string

const (
	IntentDistance Intent = "distance"
	IntentPrice    Intent = "price"
	IntentChat     Intent = "chat"
)

// ChatRequest is the payload posted to the assistant
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatReply is the assistant's answer
type ChatReply struct {
	Reply     string   `json:"reply"`
	Intent    Intent   `json:"intent"`
	Locations []string `json:"locations,omitempty"`
}

// CityListResponse mirrors the public city lookup payload
type CityListResponse struct {
	Status  string   `json:"status"`
	Content []string `json:"content"`
}
