package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
)

var (
	// ErrUnauthorized is returned when a request carries no usable bearer token.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrInvalidCredentials is returned when an operator id and API key do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when a disabled operator authenticates.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrTokenExpired is returned when a bearer token is past its expiry.
	ErrTokenExpired = errors.New("application: token expired")
)

// forbidden refuses a whole request because the principal lacks a capability.
func forbidden(principal Principal, capability Capability) error {
	return lifecycle.Refuse(lifecycle.KindForbidden, fmt.Sprintf("role %q lacks %s", principal.Role, capability))
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
