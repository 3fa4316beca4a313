// Package problem implements RFC 7807 problem-detail responses and the
// service's error taxonomy.
//
// Only validation and not-found problems surface before pipeline work.
// Provider and extractor failures are absorbed inside the pipeline and reduce
// result quality rather than availability; they never appear as problem
// responses.
package problem

import (
	"errors"
	"fmt"
	"net/http"
)

// ContentType is the media type of a problem-detail response body.
const ContentType = "application/problem+json"

// Stable problem type tags.
const (
	TypeValidation = "validation-error"
	TypeNotFound   = "not-found"
	TypeProvider   = "provider-error"
	TypeExtractor  = "extractor-error"
	TypeInternal   = "internal-error"
)

// Problem is an RFC 7807 problem-detail document.
type Problem struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Error implements the error interface.
func (p *Problem) Error() string {
	return fmt.Sprintf("%s: %s", p.Type, p.Detail)
}

// WithTrace attaches the trace id and returns the problem for chaining.
func (p *Problem) WithTrace(traceID string) *Problem {
	p.TraceID = traceID
	return p
}

// WithExtension attaches one extension member.
func (p *Problem) WithExtension(key string, value any) *Problem {
	if p.Extensions == nil {
		p.Extensions = make(map[string]any)
	}
	p.Extensions[key] = value
	return p
}

// Validation builds a 422 problem for a request schema or range violation.
func Validation(detail string) *Problem {
	return &Problem{
		Type:   TypeValidation,
		Title:  "Request validation failed",
		Status: http.StatusUnprocessableEntity,
		Detail: detail,
	}
}

// NotFound builds a 404 problem for an absent result set or place.
func NotFound(detail string) *Problem {
	return &Problem{
		Type:   TypeNotFound,
		Title:  "Resource not found",
		Status: http.StatusNotFound,
		Detail: detail,
	}
}

// Internal builds a 500 problem. The detail deliberately omits the underlying
// error; the trace id is the handle for log correlation.
func Internal(traceID string) *Problem {
	return &Problem{
		Type:    TypeInternal,
		Title:   "Internal server error",
		Status:  http.StatusInternalServerError,
		TraceID: traceID,
	}
}

// FromError maps an error to a problem, defaulting to internal. A *Problem
// anywhere in the chain passes through unchanged.
func FromError(err error, traceID string) *Problem {
	var p *Problem
	if errors.As(err, &p) {
		if p.TraceID == "" {
			p.TraceID = traceID
		}
		return p
	}
	return Internal(traceID)
}
