// Package httputil provides JSON response, error, and middleware helpers
// shared by the reference API server.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

const maxRequestBodyBytes = 1 << 20

// RespondJSON writes v as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// RespondProblem writes an RFC 9457 problem response.
func RespondProblem(w http.ResponseWriter, r *http.Request, statusCode int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(statusCode)

	problem := types.ProblemDetail{
		Type:     "about:blank",
		Title:    http.StatusText(statusCode),
		Status:   statusCode,
		Detail:   detail,
		Instance: r.URL.Path,
	}
	if err := json.NewEncoder(w).Encode(problem); err != nil {
		log.Error().Err(err).Msg("failed to encode problem response")
	}
}

// RespondProblemf formats a detail message and writes a problem response.
func RespondProblemf(w http.ResponseWriter, r *http.Request, statusCode int, format string, args ...any) {
	RespondProblem(w, r, statusCode, fmt.Sprintf(format, args...))
}

// DecodeJSON decodes a request body into dst, rejecting unknown trailing
// content and bodies over the size limit.
func DecodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(body)

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxBytesErr.Limit)
		}
		return fmt.Errorf("malformed JSON body: %w", err)
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON document")
	}
	return nil
}

// ParseProblemDetail extracts the problem detail message from an error
// response body, falling back to a trimmed body excerpt.
func ParseProblemDetail(body []byte, statusCode int) string {
	var problem types.ProblemDetail
	if err := json.Unmarshal(body, &problem); err == nil && strings.TrimSpace(problem.Detail) != "" {
		return strings.TrimSpace(problem.Detail)
	}
	excerpt := strings.TrimSpace(string(body))
	if excerpt == "" {
		return http.StatusText(statusCode)
	}
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}
	return excerpt
}
