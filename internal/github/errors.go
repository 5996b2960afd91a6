package github

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v66/github"
)

var (
	ErrUnauthorized = errors.New("github: unauthorized")
	ErrNotFound     = errors.New("github: not found")
	// ErrPending is returned by the statistics endpoints while GitHub is
	// still computing them (HTTP 202).
	ErrPending = errors.New("github: statistics are being computed")
)

// UpstreamError is any other non-2xx answer from the API.
type UpstreamError struct {
	Op      string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: github responded %d: %s", e.Op, e.Status, e.Message)
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var accepted *gh.AcceptedError
	if errors.As(err, &accepted) {
		return fmt.Errorf("%s: %w", op, ErrPending)
	}
	var resp *gh.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		switch resp.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %s", op, ErrUnauthorized, resp.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %s", op, ErrNotFound, resp.Message)
		}
		return &UpstreamError{Op: op, Status: resp.Response.StatusCode, Message: resp.Message}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// HTTPStatus maps an error from this package onto the status the gateway
// should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPending):
		return http.StatusAccepted
	}
	return http.StatusBadGateway
}
