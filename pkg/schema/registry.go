package schema

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry compiles declarations once and caches the resulting models by
// name. It is safe for concurrent use.
type Registry struct {
	mu             sync.Mutex
	models         sync.Map // map[string]*Model
	namingStrategy NamingStrategy
}

// NewRegistry creates an empty registry. A nil namingStrategy selects
// DefaultNamingStrategy.
func NewRegistry(namingStrategy NamingStrategy) *Registry {
	if namingStrategy == nil {
		namingStrategy = defaultNamingStrategy
	}
	return &Registry{namingStrategy: namingStrategy}
}

// Register compiles decl and stores the model under decl.Name. Registering
// an equal declaration again returns the cached model; a different
// declaration under a registered name fails with ErrModelRedeclared.
func (r *Registry) Register(decl Declaration) (*Model, error) {
	if cached, ok := r.models.Load(decl.Name); ok {
		return cachedFor(cached.(*Model), decl)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine may have compiled it meanwhile.
	if cached, ok := r.models.Load(decl.Name); ok {
		return cachedFor(cached.(*Model), decl)
	}

	model, err := compile(decl, r.namingStrategy)
	if err != nil {
		return nil, err
	}
	r.models.Store(decl.Name, model)
	return model, nil
}

func cachedFor(m *Model, decl Declaration) (*Model, error) {
	if !sameDeclaration(m.decl, decl) {
		return nil, &DeclarationError{Model: decl.Name, Err: ErrModelRedeclared}
	}
	return m, nil
}

func sameDeclaration(a, b Declaration) bool {
	if a.Table != b.Table || len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		x, y := &a.Fields[i], &b.Fields[i]
		if x.Name != y.Name || x.Kind != y.Kind || x.Constraints != y.Constraints ||
			x.References != y.References || x.Size != y.Size || x.Precision != y.Precision ||
			x.Description != y.Description || !reflect.DeepEqual(x.Default, y.Default) {
			return false
		}
	}
	return true
}

// MustRegister is like Register but panics on a declaration error. It suits
// package-level model variables.
func (r *Registry) MustRegister(decl Declaration) *Model {
	model, err := r.Register(decl)
	if err != nil {
		panic(err)
	}
	return model
}

// Lookup returns the registered model with the given name.
func (r *Registry) Lookup(name string) (*Model, bool) {
	m, ok := r.models.Load(name)
	if !ok {
		return nil, false
	}
	return m.(*Model), true
}

// Get is like Lookup but returns an error naming the missing model.
func (r *Registry) Get(name string) (*Model, error) {
	m, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("schema: %w: %q", ErrUnknownModel, name)
	}
	return m, nil
}

// Models returns every registered model sorted by name.
func (r *Registry) Models() []*Model {
	var out []*Model
	r.models.Range(func(_, v any) bool {
		out = append(out, v.(*Model))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
