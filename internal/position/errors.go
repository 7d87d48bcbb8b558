package position

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound                 = errors.New("position not found")
	ErrApplicationNotFound      = errors.New("application not found")
	ErrLinkNotFound             = errors.New("interview link not found")
	ErrUnauthorized             = errors.New("caller does not own this position")
	ErrDuplicateApplication     = errors.New("candidate already applied to this position")
	ErrPositionClosed           = errors.New("position is not accepting applications")
	ErrLinkInactive             = errors.New("interview link is no longer active")
	ErrInvalidApplicationStatus = errors.New("unrecognised application status")
)

// FieldError 描述一个未通过校验的字段。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 汇总所有未通过校验的字段，而不是遇到第一个就返回。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid position: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
