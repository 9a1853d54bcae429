package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common domain errors
var (
	ErrAuthExpired       = errors.New("session expired, please login again")
	ErrUnknownRole       = errors.New("unknown role")
	ErrInvalidLoanStatus = errors.New("invalid loan status")
	ErrLoanNotFound      = errors.New("loan not found")
)

// Transition errors
var (
	ErrTransitionInFlight    = errors.New("a status change for this loan is already in progress")
	ErrActionNotOffered      = errors.New("action not available for this loan")
	ErrNoPendingConfirmation = errors.New("no action awaiting confirmation")
)

// APIError is a non-2xx, non-auth response from the loan service
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NetworkError wraps a transport failure
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError collects field-level messages from client-side form checks
type ValidationError struct {
	Fields map[string]string
}

// Add records msg for field, keeping the first message per field
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether no field failed
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns e as an error only when it holds messages
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for _, msg := range e.Fields {
			return msg
		}
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}
