package predicate

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
)

// Predicate errors.
var (
	ErrEmptyPredicate  = errors.New("empty predicate")
	ErrInvalidDocument = errors.New("payload is not a valid document")
	ErrUnknownType     = errors.New("unknown predicate type")
	ErrNotBoolean      = errors.New("predicate did not evaluate to a bool")
)

// Type identifies a predicate language.
type Type uint8

const (
	// TypeSimple is a gjson path expression.
	TypeSimple Type = 0

	// TypeCEL is a CEL boolean expression.
	TypeCEL Type = 1
)

// String returns a human-readable type name.
func (t Type) String() string {
	switch t {
	case TypeSimple:
		return "SIMPLE"
	case TypeCEL:
		return "CEL"
	default:
		return "UNKNOWN"
	}
}

// Document is a parsed message payload.
type Document struct {
	raw []byte

	once  sync.Once
	value any
	err   error
}

// ParseDocument validates a JSON payload.
func ParseDocument(payload []byte) (*Document, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrInvalidDocument
	}
	return &Document{raw: payload}, nil
}

// Raw returns the payload bytes.
func (d *Document) Raw() []byte {
	return d.raw
}

// Value returns the payload decoded into maps, slices and scalars.
// Decoding happens once, on first use.
func (d *Document) Value() (any, error) {
	d.once.Do(func() {
		if err := json.Unmarshal(d.raw, &d.value); err != nil {
			d.err = fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	})
	return d.value, d.err
}

// Evaluator tests a document against a predicate string.
type Evaluator interface {
	Evaluate(doc *Document, predicate string) (bool, error)
}

// Validator is implemented by evaluators that can check a predicate
// without a document.
type Validator interface {
	Validate(predicate string) error
}

// SimpleEvaluator evaluates gjson path predicates.
type SimpleEvaluator struct{}

// Evaluate reports whether the path resolves to a truthy value.
func (SimpleEvaluator) Evaluate(doc *Document, predicate string) (bool, error) {
	if predicate == "" {
		return false, ErrEmptyPredicate
	}
	r := gjson.GetBytes(doc.Raw(), predicate)
	if !r.Exists() {
		return false, nil
	}
	switch r.Type {
	case gjson.Null, gjson.False:
		return false, nil
	case gjson.String:
		return r.Str != "", nil
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0, nil
		}
		return true, nil
	default:
		return true, nil
	}
}

// Validate rejects empty paths. Any other string is a valid gjson path.
func (SimpleEvaluator) Validate(predicate string) error {
	if predicate == "" {
		return ErrEmptyPredicate
	}
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ Evaluator = SimpleEvaluator{}
	_ Validator = SimpleEvaluator{}
)
