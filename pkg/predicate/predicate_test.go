package predicate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
	"sensor": {"id": "t-1", "temp": 31.5, "ok": true, "fault": false, "note": ""},
	"readings": [{"value": 10}, {"value": 42}],
	"tags": [],
	"missing": null
}`

func mustParse(t *testing.T, payload string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(payload))
	require.NoError(t, err)
	return doc
}

func TestParseDocumentInvalid(t *testing.T) {
	for _, payload := range []string{"", "{", "<xml/>", `{"a":}`} {
		_, err := ParseDocument([]byte(payload))
		assert.ErrorIs(t, err, ErrInvalidDocument, "payload %q", payload)
	}
}

func TestDocumentValue(t *testing.T) {
	doc := mustParse(t, `{"a": [1, 2]}`)
	v, err := doc.Value()
	require.NoError(t, err)

	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Len(t, m["a"], 2)
}

func TestSimpleEvaluator(t *testing.T) {
	doc := mustParse(t, sample)
	e := SimpleEvaluator{}

	tests := []struct {
		path string
		want bool
	}{
		{"sensor", true},
		{"sensor.id", true},
		{"sensor.temp", true},
		{"sensor.ok", true},
		{"sensor.fault", false},
		{"sensor.note", false},
		{"sensor.nothing", false},
		{"missing", false},
		{"tags", false},
		{"readings.#(value>30)", true},
		{"readings.#(value>50)", false},
		{"readings.#(value>5)#", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := e.Evaluate(doc, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := e.Evaluate(doc, "")
	assert.ErrorIs(t, err, ErrEmptyPredicate)
	assert.ErrorIs(t, e.Validate(""), ErrEmptyPredicate)
	assert.NoError(t, e.Validate("a.b"))
}

func TestCELEvaluator(t *testing.T) {
	e, err := NewCELEvaluator()
	require.NoError(t, err)
	doc := mustParse(t, sample)

	tests := []struct {
		expr string
		want bool
	}{
		{`doc.sensor.temp > 30.0`, true},
		{`doc.sensor.temp > 40.0`, false},
		{`doc.sensor.id == "t-1"`, true},
		{`doc.sensor.ok`, true},
		{`doc.readings.exists(r, r.value == 42.0)`, true},
		{`size(doc.tags) == 0`, true},
		{`has(doc.sensor.humidity)`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Evaluate(doc, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCELEvaluatorErrors(t *testing.T) {
	e, err := NewCELEvaluator()
	require.NoError(t, err)
	doc := mustParse(t, sample)

	_, err = e.Evaluate(doc, "   ")
	assert.ErrorIs(t, err, ErrEmptyPredicate)

	assert.Error(t, e.Validate("doc.a >"), "syntax error")
	assert.ErrorIs(t, e.Validate(`"text"`), ErrNotBoolean)

	_, err = e.Evaluate(doc, "doc.sensor.humidity > 1.0")
	assert.Error(t, err, "missing field is a runtime error")

	_, err = e.Evaluate(doc, "doc.sensor.id")
	assert.ErrorIs(t, err, ErrNotBoolean)
}

func TestCELEvaluatorCachesPrograms(t *testing.T) {
	e, err := NewCELEvaluator()
	require.NoError(t, err)

	require.NoError(t, e.Validate("doc.a == 1.0"))
	require.NoError(t, e.Validate("doc.a == 1.0"))
	assert.Len(t, e.programs, 1)
}

func TestRegistry(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	ok, err := r.Match(TypeSimple, []byte(sample), "sensor.ok")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Match(TypeCEL, []byte(sample), "doc.sensor.temp < 0.0")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Match(Type(9), []byte(sample), "x")
	assert.True(t, errors.Is(err, ErrUnknownType))

	_, err = r.Match(TypeSimple, []byte("not json"), "x")
	assert.ErrorIs(t, err, ErrInvalidDocument)

	assert.NoError(t, r.Validate(TypeCEL, "doc.x == 1.0"))
	assert.ErrorIs(t, r.Validate(TypeSimple, ""), ErrEmptyPredicate)
	assert.ErrorIs(t, r.Validate(Type(9), "x"), ErrUnknownType)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "SIMPLE", TypeSimple.String())
	assert.Equal(t, "CEL", TypeCEL.String())
	assert.Equal(t, "UNKNOWN", Type(7).String())
}
