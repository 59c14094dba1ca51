package http

// APIResponse is the envelope of every /api/todos response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse is the body of a failed calendar request
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse carries a human-readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse reports whether the browser holds calendar credentials
type StatusResponse struct {
	Connected bool `json:"connected"`
}

// EmptyData renders as {} inside the envelope
type EmptyData struct{}

func success(data interface{}) APIResponse {
	return APIResponse{Success: true, Data: data}
}

func failure(msg string) APIResponse {
	return APIResponse{Success: false, Error: msg}
}
