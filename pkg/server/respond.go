package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow"
	"github.com/matzehuels/flowcraft/pkg/flowio"
	"github.com/matzehuels/flowcraft/pkg/validate"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   errors.Code `json:"error"`
	Message string      `json:"message"`
	Details any         `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError picks the status from the error's code. Internal errors are logged and
// answered with a generic message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := codeOf(err)
	status := code.Status()
	resp := errorResponse{Error: code, Message: errors.UserMessage(err)}

	var verr *validate.Error
	if stderrors.As(err, &verr) {
		resp.Details = map[string]any{"errors": verr.Errors, "logs": verr.Logs}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		if code == errors.ErrCodeInternal {
			resp.Message = "internal error"
		}
	}
	respondJSON(w, status, resp)
}

// codeOf maps an error to its code. Errors from the graph model carry no code of
// their own and are classified by sentinel.
func codeOf(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	switch {
	case stderrors.Is(err, flow.ErrSelfLoop),
		stderrors.Is(err, flow.ErrDuplicateEdge),
		stderrors.Is(err, flow.ErrCycle):
		return errors.ErrCodeInvalidConnection
	case stderrors.Is(err, flow.ErrUnknownNode),
		stderrors.Is(err, flow.ErrUnknownSourceNode),
		stderrors.Is(err, flow.ErrUnknownTargetNode),
		stderrors.Is(err, flow.ErrUnknownEdge):
		return errors.ErrCodeNodeNotFound
	case stderrors.Is(err, flow.ErrInvalidNodeID),
		stderrors.Is(err, flow.ErrDuplicateNodeID),
		stderrors.Is(err, flow.ErrDuplicateTitle),
		stderrors.Is(err, flowio.ErrKindMismatch):
		return errors.ErrCodeInvalidNode
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ErrCodeTimeout
	default:
		return errors.ErrCodeInternal
	}
}

var requestValidator = validator.New()

// decode reads a JSON body into v and checks its validate tags. An empty body is
// accepted when allowEmpty is set and leaves v untouched.
func decode(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case stderrors.Is(err, io.EOF) && allowEmpty:
	case err != nil:
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", maxErr.Limit)
		}
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid request body")
	}
	if err := requestValidator.Struct(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, formatValidationError(err), "invalid request")
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	field := e.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s], got %v", field, e.Param(), e.Value())
	default:
		return fmt.Errorf("%s: validation failed (%s=%s)", field, e.Tag(), e.Param())
	}
}

// toGraph converts a request graph, reporting structural problems as bad input.
func toGraph(w flowio.Graph) (*flow.Graph, error) {
	g, err := w.ToGraph()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid graph")
	}
	return g, nil
}
