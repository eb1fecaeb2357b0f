package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrNaturalKeyConflict = fmt.Errorf("%w: natural key matches more than one post", ErrNotFound)
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrDelivery           = errors.New("delivery failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError перечисляет поля, не прошедшие проверку, и сообщения к ним.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError создает ошибку для одного поля.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has сообщает, провалилась ли проверка указанного поля.
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}
