package handler

import (
	"time"

	"github.com/yndnr/aci-go/internal/server/wsserver"
)

// Response is the JSON envelope of every handler response.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Databases []string `json:"databases,omitempty"`
	Sessions  int      `json:"sessions"`
}

// ClientsResponse is the body of /clients.
type ClientsResponse struct {
	Sessions int                     `json:"sessions"`
	Clients  []wsserver.ClientRecord `json:"clients"`
}
