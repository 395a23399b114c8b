// pkg/edgemodel/hooks.go
package edgemodel

import (
	"context"
	"fmt"
)

// Hook runs around a record operation with the record being processed.
type Hook func(ctx context.Context, r *Record) error

// Hooks groups the callbacks registered for one model. Any of them may be
// nil.
//
// An error from a Before hook aborts the operation before its statement
// runs. An error from an After hook is reported in the result but the
// statement has already taken effect.
type Hooks struct {
	BeforeSave   Hook // after the probe, before INSERT or UPDATE
	AfterSave    Hook
	BeforeDelete Hook
	AfterDelete  Hook
	AfterLoad    Hook // after Load, GetByID and every row of a listing
}

// WithHooks registers lifecycle callbacks for the model with the given name.
// Registering twice for the same model replaces the earlier hooks.
func WithHooks(model string, h Hooks) Option {
	return func(o *options) { o.hooks[model] = h }
}

// runHook calls h when it is set and tags its error with the hook name.
func (r *Record) runHook(ctx context.Context, name string, h Hook) error {
	if h == nil {
		return nil
	}
	if err := h(ctx, r); err != nil {
		return fmt.Errorf("edgemodel: %s hook for %s: %w", name, r.model.Name, err)
	}
	return nil
}

func (r *Record) hooks() Hooks {
	return r.db.hooks[r.model.Name]
}
