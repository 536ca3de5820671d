package collections

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetOf(t *testing.T) {
	s := SetOf(1, 2, 2, 3)
	assert.Len(t, s, 3)
	assert.True(t, s.Contains(1))
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(4))
}

func TestIntersect(t *testing.T) {
	a := SetOf("x", "y", "z")
	b := SetOf("y", "z", "w")

	got := a.Intersect(b).Values()
	slices.Sort(got)
	assert.Equal(t, []string{"y", "z"}, got)

	// Inputs are untouched.
	assert.Len(t, a, 3)
	assert.Len(t, b, 3)
}

func TestDiff(t *testing.T) {
	a := SetOf("x", "y", "z")
	b := SetOf("y")

	got := a.Diff(b).Values()
	slices.Sort(got)
	assert.Equal(t, []string{"x", "z"}, got)

	assert.Empty(t, b.Diff(b))
}

func TestJoin(t *testing.T) {
	a := SetOf(1, 2)
	a.Join(SetOf(2, 3))

	got := a.Values()
	slices.Sort(got)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestValuesEmpty(t *testing.T) {
	assert.Nil(t, Set[int]{}.Values())
	assert.Nil(t, ToSet[string](nil).Values())
}
