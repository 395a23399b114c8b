package schema

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFieldName     = errors.New("field name is not set")
	ErrForeignKeyTarget     = errors.New("referenced model has no primary key")
	ErrInvalidForeignKey    = errors.New("invalid foreign key reference")
	ErrNoPrimaryKey         = errors.New("model has no primary key")
	ErrInvalidAutoIncrement = errors.New("auto-increment requires a single integer primary key")
	ErrDuplicateField       = errors.New("duplicate field name")
	ErrInvalidIdentifier    = errors.New("invalid SQL identifier")
	ErrInvalidDefault       = errors.New("default value does not match field kind")
	ErrUnknownKind          = errors.New("unknown field kind")
	ErrKindMismatch         = errors.New("value does not match field kind")
	ErrUnknownModel         = errors.New("model is not registered")
	ErrModelRedeclared      = errors.New("model name already registered with a different declaration")
)

// DeclarationError collects every problem found while compiling one model
// declaration.
type DeclarationError struct {
	Model string
	Err   error
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("schema: invalid declaration for model %s: %v", e.Model, e.Err)
}

func (e *DeclarationError) Unwrap() error { return e.Err }
