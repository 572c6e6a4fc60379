package client

import (
	"errors"
	"fmt"
)

// ErrRequest is returned when a request could not be sent or read.
var ErrRequest = errors.New("request failed")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
}
