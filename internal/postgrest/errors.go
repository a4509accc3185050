package postgrest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/roach88/mallstore/internal/gateway"
)

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest: HTTP %d [%s] %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest: HTTP %d %s", e.Status, e.Message)
}

// Postgres SQLSTATE for unique_violation.
const codeUniqueViolation = "23505"

// Unwrap lets errors.Is match the gateway sentinels. A 409 counts as a
// unique violation only when the body carries no SQLSTATE; other codes
// (foreign key 23503, exclusion 23P01) stay plain errors.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == codeUniqueViolation || (e.Code == "" && e.Status == http.StatusConflict):
		return gateway.ErrUniqueViolation
	case e.Status == http.StatusBadGateway ||
		e.Status == http.StatusServiceUnavailable ||
		e.Status == http.StatusGatewayTimeout:
		return gateway.ErrUnavailable
	default:
		return nil
	}
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
