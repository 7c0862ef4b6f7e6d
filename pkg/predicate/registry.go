package predicate

import (
	"fmt"
	"sync"
)

// Registry maps predicate types to evaluators.
type Registry struct {
	mu         sync.RWMutex
	evaluators map[Type]Evaluator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{evaluators: make(map[Type]Evaluator)}
}

// NewDefaultRegistry creates a registry with the simple and CEL evaluators.
func NewDefaultRegistry() (*Registry, error) {
	celEval, err := NewCELEvaluator()
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	r.Register(TypeSimple, SimpleEvaluator{})
	r.Register(TypeCEL, celEval)
	return r, nil
}

// Register installs an evaluator for a type, replacing any previous one.
func (r *Registry) Register(t Type, e Evaluator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[t] = e
}

// Lookup returns the evaluator for a type.
func (r *Registry) Lookup(t Type) (Evaluator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.evaluators[t]
	return e, ok
}

// Validate checks a predicate for a type without evaluating it.
func (r *Registry) Validate(t Type, predicate string) error {
	e, ok := r.Lookup(t)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	if predicate == "" {
		return ErrEmptyPredicate
	}
	if v, ok := e.(Validator); ok {
		return v.Validate(predicate)
	}
	return nil
}

// Match parses payload and evaluates predicate against it.
// Unknown types, unparsable payloads and evaluation errors are reported
// as errors; callers that only need a yes/no treat any error as no match.
func (r *Registry) Match(t Type, payload []byte, predicate string) (bool, error) {
	e, ok := r.Lookup(t)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	doc, err := ParseDocument(payload)
	if err != nil {
		return false, err
	}
	return e.Evaluate(doc, predicate)
}
