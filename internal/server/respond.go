package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/matzehuels/flowsketch/pkg/errors"
	"github.com/matzehuels/flowsketch/pkg/render"
)

// apiError is the body of every error response.
type apiError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, apiError{Code: errCode, Message: message})
}

// writeError maps err to a status code and error body.
func writeError(w http.ResponseWriter, err error) {
	if se, ok := render.AsSyntaxError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, apiError{
			Code:       string(errors.ErrCodeRenderSyntax),
			Message:    se.Error(),
			Diagnostic: se.Diagnostic,
		})
		return
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeErr(w, errors.HTTPStatus(err), string(code), errors.UserMessage(err))
}

// decode reads a JSON body into v, rejecting unknown fields and trailing data.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.New(errors.ErrCodeRequestTooLong, "request body exceeds %d bytes", tooLarge.Limit)
		}
		if stderrors.Is(err, io.EOF) {
			return errors.New(errors.ErrCodeInvalidInput, "request body is empty")
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON: %v", err)
	}
	if dec.More() {
		return errors.New(errors.ErrCodeInvalidInput, "invalid JSON: trailing data after object")
	}
	return nil
}
