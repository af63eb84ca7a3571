package dataset

/*
Selection represents a subset of the rows or columns of a dataset as a
bit vector over the whole domain paired with the list of selected
indexes in the order they were first selected.
*/
type Selection struct {
	bits    []bool
	indexes []int
}

/*
NewSelection takes a domain size and returns a selection over it with
every index selected or none, according to the selected parameter.
*/
func NewSelection(size int, selected bool) *Selection {
	s := &Selection{}
	if selected {
		s.SelectAll(size)
	} else {
		s.Clear(size)
	}
	return s
}

/*
Clear resizes the selection to the given domain size with no index
selected.
*/
func (s *Selection) Clear(size int) {
	s.bits = make([]bool, size)
	s.indexes = s.indexes[:0]
}

/*
SelectAll resizes the selection to the given domain size with every
index selected, in ascending order.
*/
func (s *Selection) SelectAll(size int) {
	s.bits = make([]bool, size)
	s.indexes = make([]int, size)
	for i := range s.bits {
		s.bits[i] = true
		s.indexes[i] = i
	}
}

/*
Select adds an index to the selection. Selecting an already selected
index is a no-op.
*/
func (s *Selection) Select(index int) {
	if !s.bits[index] {
		s.bits[index] = true
		s.indexes = append(s.indexes, index)
	}
}

/*
Unselect removes an index from the selection, preserving the order in
which the remaining indexes were selected. Unselecting an unselected
index is a no-op.
*/
func (s *Selection) Unselect(index int) {
	if !s.bits[index] {
		return
	}
	s.bits[index] = false
	for i, idx := range s.indexes {
		if idx == index {
			s.indexes = append(s.indexes[:i], s.indexes[i+1:]...)
			break
		}
	}
}

/*
Selected returns whether the given index is part of the selection.
*/
func (s *Selection) Selected(index int) bool {
	return s.bits[index]
}

/*
Indexes returns the selected indexes in the order they were first
selected. The returned slice is shared and must not be modified.
*/
func (s *Selection) Indexes() []int {
	return s.indexes
}

/*
Count returns the number of selected indexes.
*/
func (s *Selection) Count() int {
	return len(s.indexes)
}

/*
Size returns the size of the domain the selection ranges over.
*/
func (s *Selection) Size() int {
	return len(s.bits)
}

/*
Copy returns a selection with the same domain, selected indexes and
selection order that can be modified independently.
*/
func (s *Selection) Copy() *Selection {
	c := &Selection{
		bits:    make([]bool, len(s.bits)),
		indexes: make([]int, len(s.indexes)),
	}
	copy(c.bits, s.bits)
	copy(c.indexes, s.indexes)
	return c
}
