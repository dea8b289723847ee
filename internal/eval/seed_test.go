package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeedBaseDeterministic(t *testing.T) {
	a := SeedBase("scenario_a", "gemma3:4b")
	b := SeedBase("scenario_a", "gemma3:4b")
	assert.Equal(t, a, b)
	assert.Positive(t, a)
}

func TestSeedBaseDistinguishesInputs(t *testing.T) {
	base := SeedBase("scenario_a", "gemma3:4b")

	assert.NotEqual(t, base, SeedBase("scenario_b", "gemma3:4b"))
	assert.NotEqual(t, base, SeedBase("scenario_a", "deepseek-r1:8b"))
	assert.NotEqual(t, base, SeedBase("scenario_a", "gemma3:4b", auditSeedTag))
}

func TestSeedBaseRange(t *testing.T) {
	// Eight hex digits: always representable and non-negative.
	for _, parts := range [][]string{
		{""},
		{"a", "b", "c"},
		{"scenario", "model", "audit"},
	} {
		v := SeedBase(parts...)
		assert.GreaterOrEqual(t, v, int64(0))
		assert.Less(t, v, int64(1)<<32)
	}
}
