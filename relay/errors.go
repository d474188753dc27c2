package relay

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// UpstreamErrorKind classifies why a stream could not be opened.
type UpstreamErrorKind int

const (
	// UpstreamUnavailable means the brain could not be reached.
	UpstreamUnavailable UpstreamErrorKind = iota + 1

	// UpstreamBadStatus means the brain answered with a non-200 status.
	UpstreamBadStatus

	// UpstreamNoBody means the brain answered 200 without a body to stream.
	UpstreamNoBody
)

func (k UpstreamErrorKind) String() string {
	switch k {
	case UpstreamUnavailable:
		return "unavailable"
	case UpstreamBadStatus:
		return "bad_status"
	case UpstreamNoBody:
		return "no_body"
	default:
		return "unknown"
	}
}

// UpstreamError is a failure to open the upstream stream. It is always
// reported to the client as a terminal JSON response, never mid-stream.
type UpstreamError struct {
	Kind       UpstreamErrorKind
	Status     int
	StatusText string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch e.Kind {
	case UpstreamBadStatus:
		return fmt.Sprintf("upstream returned %d %s", e.Status, e.StatusText)
	case UpstreamNoBody:
		return "upstream returned no body"
	default:
		if e.Err != nil {
			return "upstream unavailable: " + e.Err.Error()
		}
		return "upstream unavailable"
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HTTPStatus is the status the relay answers the client with.
func (e *UpstreamError) HTTPStatus() int {
	if e.Kind == UpstreamNoBody {
		return fiber.StatusInternalServerError
	}
	return fiber.StatusBadGateway
}

// ErrorResponse is the JSON body of every relay error.
type ErrorResponse struct {
	Error          string `json:"error"`
	Kind           string `json:"kind,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// Response builds the client-facing body.
func (e *UpstreamError) Response() ErrorResponse {
	resp := ErrorResponse{
		Error: e.Error(),
		Kind:  e.Kind.String(),
	}
	if e.Kind == UpstreamBadStatus {
		resp.UpstreamStatus = e.Status
	}
	return resp
}

func badStatus(code int) *UpstreamError {
	return &UpstreamError{
		Kind:       UpstreamBadStatus,
		Status:     code,
		StatusText: http.StatusText(code),
	}
}
