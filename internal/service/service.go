// Package service holds the business rules of the API.
//
// Layering:
//
//	Handler (HTTP)   → parses requests, writes responses
//	Service (rules)  → validates, checks ownership, drives state machines
//	Repository (SQL) → reads and writes rows
//
// Services take repository interfaces, never *sqlite.DB, so the tests in
// this package run against in-memory fakes. They return apperror values and
// leave status codes to the handlers.
package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/sakif/careerdeck/internal/apperror"
	"github.com/sakif/careerdeck/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// listOptions clamps caller-supplied paging to sane bounds.
func listOptions(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}

// requireID rejects blank path parameters before they reach the database.
func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	return id, nil
}

// checkLength validates a trimmed free-text field.
func checkLength(field, value string, max int, required bool) (string, error) {
	value = strings.TrimSpace(value)
	if required && value == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	if len(value) > max {
		return "", apperror.ValidationFailed(field, fmt.Sprintf("%s must be %d characters or less", field, max))
	}
	return value, nil
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed(field, field+" must be a date in YYYY-MM-DD format")
	}
	return d, nil
}
