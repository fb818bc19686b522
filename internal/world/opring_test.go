package world

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpRingRemember(t *testing.T) {
	r := NewOpRing(3)
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Contains("a"))

	r.Remember("a")
	r.Remember("b")
	assert.True(t, r.Contains("a"))
	assert.True(t, r.Contains("b"))
	assert.False(t, r.Contains("c"))
	assert.Equal(t, 2, r.Len())
}

func TestOpRingEvictsOldest(t *testing.T) {
	r := NewOpRing(3)
	r.Remember("a")
	r.Remember("b")
	r.Remember("c")
	assert.Equal(t, 3, r.Len())

	r.Remember("d")
	assert.False(t, r.Contains("a"), "oldest id must be evicted")
	assert.True(t, r.Contains("b"))
	assert.True(t, r.Contains("c"))
	assert.True(t, r.Contains("d"))
	assert.Equal(t, 3, r.Len())
}

func TestOpRingWrapAround(t *testing.T) {
	r := NewOpRing(4)
	for i := 0; i < 20; i++ {
		r.Remember(fmt.Sprintf("op_%d", i))
	}
	assert.Equal(t, 4, r.Len())
	for i := 16; i < 20; i++ {
		assert.True(t, r.Contains(fmt.Sprintf("op_%d", i)))
	}
	assert.False(t, r.Contains("op_15"))
}

func TestOpRingMinimumCapacity(t *testing.T) {
	r := NewOpRing(0)
	r.Remember("x")
	assert.True(t, r.Contains("x"))
	r.Remember("y")
	assert.False(t, r.Contains("x"))
	assert.True(t, r.Contains("y"))
}
