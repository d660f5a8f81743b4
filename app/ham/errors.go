package ham

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingAPIKey = errors.New("ham: missing API key")

// StatusError is returned when the catalog answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "ham: HTTP status error"
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("ham: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ham: HTTP %d: %s", e.StatusCode, body)
}
