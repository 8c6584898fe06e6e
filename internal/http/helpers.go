package http

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"cashbox/internal/core"
)

// boxID reads the {id} path segment, stripping control characters.
func boxID(r *http.Request) string {
	return sanitizeInput(r.PathValue("id"))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// statusFor maps box errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrBoxNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyCashedOut),
		errors.Is(err, core.ErrNoConfirmation),
		errors.Is(err, core.ErrCommitInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrCommitFailed), errors.Is(err, core.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown to the user for a box error.
func userMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrBoxNotFound):
		return "This box no longer exists."
	case errors.Is(err, core.ErrAlreadyCashedOut):
		return "This box has already been cashed out."
	case errors.Is(err, core.ErrNoConfirmation):
		return "The confirmation expired. Start the cash-out again."
	case errors.Is(err, core.ErrCommitInProgress):
		return "A cash-out for this box is already in progress."
	case errors.Is(err, core.ErrCommitFailed):
		return "Could not save the cash-out. Please try again."
	default:
		return "Something went wrong."
	}
}

// render executes a named template into a buffer so a failure never leaves
// a half-written response.
func (s *Server) render(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, errors.New("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
