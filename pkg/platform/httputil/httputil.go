// Package httputil holds the JSON response and request helpers shared by handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "guardian/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies; access requests are tiny.
const maxBodyBytes = 64 << 10

// genericRetryMessage is all a caller learns about infrastructure failures.
const genericRetryMessage = "please try again later"

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Validatable is implemented by request bodies that normalize and check themselves.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status code and writes the error envelope.
// Infrastructure failures only carry a generic retry hint.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, exposeDetail := statusFor(code)

	resp := ErrorResponse{Error: string(code)}
	var de *dErrors.Error
	switch {
	case exposeDetail && errors.As(err, &de):
		resp.ErrorDescription = de.Message
	case code == dErrors.CodeUnavailable, code == dErrors.CodeConflict, code == dErrors.CodeTimeout:
		resp.ErrorDescription = genericRetryMessage
	}
	WriteJSON(w, status, resp)
}

func statusFor(code dErrors.Code) (status int, exposeDetail bool) {
	switch code {
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest, true
	case dErrors.CodeValidation:
		return http.StatusBadRequest, true
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized, true
	case dErrors.CodeNotFound:
		return http.StatusNotFound, true
	case dErrors.CodeConflict:
		return http.StatusConflict, false
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable, false
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout, false
	default:
		return http.StatusInternalServerError, false
	}
}

// DecodeAndPrepare decodes a JSON body into T and runs its Validate. On
// failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}

	if err := PT(&req).Validate(); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}
