package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/me/schedsim/pkg/model"
)

// newRequestID returns a short id for one API request.
func newRequestID() string {
	return "req_" + uuid.New().String()[:8]
}

// reply writes data in the standard envelope.
func reply(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeEnvelope(w, status, model.Response{
		Status:    model.EnvelopeOK,
		RequestID: RequestIDFromContext(r.Context()),
		Data:      data,
	})
}

// replyPage writes one page of a list endpoint.
func replyPage(w http.ResponseWriter, r *http.Request, data any, pg model.Pagination) {
	writeEnvelope(w, http.StatusOK, model.Response{
		Status:     model.EnvelopeOK,
		RequestID:  RequestIDFromContext(r.Context()),
		Data:       data,
		Pagination: &pg,
	})
}

// replyError writes apiErr with the given status.
func replyError(w http.ResponseWriter, r *http.Request, status int, apiErr *model.APIError) {
	writeEnvelope(w, status, model.Response{
		Status:    model.EnvelopeError,
		RequestID: RequestIDFromContext(r.Context()),
		Error:     apiErr,
	})
}

// fail logs err and answers with a generic INTERNAL_ERROR that points at the
// request id.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, what string, err error, attrs ...any) {
	reqID := RequestIDFromContext(r.Context())
	s.logger.Error(what, append([]any{"request_id", reqID, "error", err}, attrs...)...)
	replyError(w, r, http.StatusInternalServerError, &model.APIError{
		Code:    model.ErrInternal,
		Message: "internal error, see server log for request " + reqID,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, resp model.Response) {
	resp.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
