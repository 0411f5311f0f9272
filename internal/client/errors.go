package client

import "fmt"

// NetworkError: сбой транспорта или ответ с не-2xx статусом.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Op, e.URL, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: HTTP %d", e.Op, e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerStatusError: 2xx-ответ, в котором status не "success".
// Message показывается пользователю как есть.
type ServerStatusError struct {
	Op      string
	Status  string
	Message string
}

func (e *ServerStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server responded with status %q", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
