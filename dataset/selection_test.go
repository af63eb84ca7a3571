package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionSelectAll(t *testing.T) {
	s := NewSelection(4, true)
	assert.Equal(t, 4, s.Size())
	assert.Equal(t, 4, s.Count())
	assert.Equal(t, []int{0, 1, 2, 3}, s.Indexes())
	for i := 0; i < 4; i++ {
		assert.True(t, s.Selected(i))
	}
}

func TestSelectionSelectOrder(t *testing.T) {
	s := NewSelection(5, false)
	s.Select(3)
	s.Select(1)
	s.Select(4)
	s.Select(1)
	assert.Equal(t, []int{3, 1, 4}, s.Indexes())
	assert.Equal(t, 3, s.Count())
	assert.True(t, s.Selected(1))
	assert.False(t, s.Selected(0))
}

func TestSelectionUnselectKeepsOrder(t *testing.T) {
	s := NewSelection(5, false)
	s.Select(3)
	s.Select(1)
	s.Select(4)
	s.Select(0)
	s.Unselect(1)
	assert.Equal(t, []int{3, 4, 0}, s.Indexes())
	assert.Equal(t, 3, s.Count())
	assert.False(t, s.Selected(1))

	s.Unselect(1)
	assert.Equal(t, 3, s.Count())
}

func TestSelectionCopy(t *testing.T) {
	s := NewSelection(3, false)
	s.Select(2)
	c := s.Copy()
	c.Select(0)
	assert.Equal(t, []int{2}, s.Indexes())
	assert.Equal(t, []int{2, 0}, c.Indexes())
}
