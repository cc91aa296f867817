package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"conti/internal/core"
	"conti/internal/log"
	"conti/internal/query"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes: validation 422, not found
// 404, malformed request 400, anything else 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		ve     *core.ValidationError
		status int
		resp   errorResponse
	)
	switch {
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		resp = errorResponse{Error: ve.Error(), Field: ve.Field}
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		resp = errorResponse{Error: err.Error()}
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		resp = errorResponse{Error: err.Error()}
	default:
		status = http.StatusInternalServerError
		resp = errorResponse{Error: "internal error"}
		// The request logger carries the request id.
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).LogError(r.Context(), "Request failed", err, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()))
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}
		return badRequest("decode body: %v", err)
	}
	if dec.More() {
		return badRequest("body must contain a single object")
	}
	return nil
}

// amountInput accepts amounts either as JSON numbers or strings. Strings may
// use a decimal comma.
type amountInput string

func (a *amountInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or string")
	}
	*a = amountInput(n.String())
	return nil
}

// parseFilter reads window, start, end and types from the query string.
// A missing types parameter selects every type; an empty one selects none.
func parseFilter(r *http.Request) (query.Filter, error) {
	q := r.URL.Query()
	f := query.DefaultFilter()

	kind := strings.TrimSpace(q.Get("window"))
	start := strings.TrimSpace(q.Get("start"))
	end := strings.TrimSpace(q.Get("end"))
	if kind == "" && (start != "" || end != "") {
		kind = string(query.WindowCustom)
	}
	if kind != "" {
		window, err := query.ParseWindow(kind, start, end)
		if err != nil {
			return query.Filter{}, err
		}
		f.Window = window
	}

	if q.Has("types") {
		types, err := query.ParseTypes(q.Get("types"))
		if err != nil {
			return query.Filter{}, err
		}
		f.Types = types
	}
	return f, nil
}

// parseLimit reads a positive integer parameter bounded by max.
func parseLimit(r *http.Request, name string, def, max int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, core.Invalid(name, fmt.Errorf("must be between 1 and %d", max))
	}
	return n, nil
}
