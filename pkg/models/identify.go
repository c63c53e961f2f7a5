package models

// IdentifyResponse is the transport-level envelope for an identification request.
type IdentifyResponse struct {
	RequestID         string       `json:"request_id"`
	Record            *MediaRecord `json:"record,omitempty"`
	Candidates        []string     `json:"candidates,omitempty"`
	Message           string       `json:"message"`
	ProcessingTimeSec float64      `json:"processing_time_sec"`
}

// ErrorResponse is the transport-level error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
