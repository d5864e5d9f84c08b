package models

type ChatRequest struct {
	SessionID *int64 `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID int64  `json:"session_id"`
}
