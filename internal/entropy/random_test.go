package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeededIsDeterministic(t *testing.T) {
	a, b := Seeded(7), Seeded(7)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestCryptoSourceRange(t *testing.T) {
	src := Crypto()
	for i := 0; i < 200; i++ {
		f := src.Float64()
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
		n := src.Intn(5)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 5)
	}
}

func TestIntRange(t *testing.T) {
	src := Seeded(1)
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		v := IntRange(src, 2, 4)
		assert.GreaterOrEqual(t, v, 2)
		assert.LessOrEqual(t, v, 4)
		seen[v] = true
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, 3, IntRange(src, 3, 3))
}

func TestChance(t *testing.T) {
	src := Seeded(1)
	assert.False(t, Chance(src, 0))
	assert.True(t, Chance(src, 1))
}
