package predicate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELEvaluator evaluates CEL expressions against the doc variable.
// Compiled programs are cached by expression. It is safe for concurrent use.
type CELEvaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewCELEvaluator creates an evaluator with doc declared as a dynamic value.
func NewCELEvaluator() (*CELEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &CELEvaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

func (e *CELEvaluator) program(expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, ErrEmptyPredicate
	}

	e.mu.RLock()
	prog, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}

	ast, iss := e.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("failed to compile predicate: %w", iss.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: %s", ErrNotBoolean, out)
	}
	prog, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build predicate program: %w", err)
	}

	e.mu.Lock()
	e.programs[expr] = prog
	e.mu.Unlock()
	return prog, nil
}

// Evaluate runs the expression. Runtime errors, such as a missing field,
// are returned as errors.
func (e *CELEvaluator) Evaluate(doc *Document, predicate string) (bool, error) {
	prog, err := e.program(predicate)
	if err != nil {
		return false, err
	}
	value, err := doc.Value()
	if err != nil {
		return false, err
	}
	out, _, err := prog.Eval(map[string]any{"doc": value})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, ErrNotBoolean
	}
	return b, nil
}

// Validate compiles the expression without evaluating it.
func (e *CELEvaluator) Validate(predicate string) error {
	_, err := e.program(predicate)
	return err
}

// Compile-time interface satisfaction checks.
var (
	_ Evaluator = (*CELEvaluator)(nil)
	_ Validator = (*CELEvaluator)(nil)
)
