package model

import "time"

// Envelope status values.
const (
	EnvelopeOK    = "ok"
	EnvelopeError = "error"
)

// Page size bounds for list queries.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Status     string      `json:"status"` // EnvelopeOK or EnvelopeError
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination describes one page of a list reply.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListOptions selects a page of stored runs.
type ListOptions struct {
	Limit  int
	Offset int
	Policy string // registry key, empty for all
}

// DefaultListOptions returns the first page with the default size.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: DefaultPageSize}
}

// Clamp keeps Limit within [1, MaxPageSize] and Offset non-negative.
func (o *ListOptions) Clamp() {
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultPageSize
	case o.Limit > MaxPageSize:
		o.Limit = MaxPageSize
	}
	o.Offset = max(o.Offset, 0)
}

// Page describes a reply holding n of total items fetched with o.
func (o ListOptions) Page(n, total int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   o.Limit,
		Offset:  o.Offset,
		HasMore: o.Offset+n < total,
	}
}
