package value

import "fmt"

/*
NACategoryName is the name reserved for the synthetic NA level of a
CategoryMap. It must not collide with a real level name.
*/
const NACategoryName = " <NA> "

/*
CategoryMap represents the bijection between the level names of a
categorical column and their integer indexes. Indexes are assigned in
insertion order starting at zero. When the useNACategory flag is on,
missing values are additionally exposed as a synthetic level with index
NoIndex, so that enumerating indexes runs [NoIndex, Count()) instead of
[0, Count()).
*/
type CategoryMap struct {
	names         []string
	indexes       map[string]int
	useNACategory bool
}

/*
NewCategoryMap returns an empty category map with the synthetic NA level
disabled.
*/
func NewCategoryMap() *CategoryMap {
	return &CategoryMap{indexes: map[string]int{}}
}

/*
UseNACategory returns whether missing values are exposed as a synthetic
level.
*/
func (m *CategoryMap) UseNACategory() bool {
	return m.useNACategory
}

/*
SetUseNACategory enables or disables the synthetic NA level.
*/
func (m *CategoryMap) SetUseNACategory(use bool) {
	m.useNACategory = use
}

/*
FindOrInsert takes a level name and returns its index, inserting the
name after the existing levels when it is not present yet.
*/
func (m *CategoryMap) FindOrInsert(name string) int {
	index, ok := m.indexes[name]
	if !ok {
		index = len(m.names)
		m.names = append(m.names, name)
		m.indexes[name] = index
	}
	return index
}

/*
Insert takes a level name and returns its newly assigned index, or an
error when the name is already present.
*/
func (m *CategoryMap) Insert(name string) (int, error) {
	if _, ok := m.indexes[name]; ok {
		return NoIndex, fmt.Errorf("duplicate category name %q", name)
	}
	index := len(m.names)
	m.names = append(m.names, name)
	m.indexes[name] = index
	return index, nil
}

/*
IndexFor takes a level name and returns its index and true, or NoIndex
and false when the name is not present. The synthetic NA level is not
matched by name.
*/
func (m *CategoryMap) IndexFor(name string) (int, bool) {
	index, ok := m.indexes[name]
	if !ok {
		return NoIndex, false
	}
	return index, true
}

/*
NameFor takes a level index and returns its name and true. NoIndex
resolves to NACategoryName when the synthetic NA level is enabled. For
indexes naming no level it returns NACategoryName and false.
*/
func (m *CategoryMap) NameFor(index int) (string, bool) {
	if index == NoIndex && m.useNACategory {
		return NACategoryName, true
	}
	if index >= 0 && index < len(m.names) {
		return m.names[index], true
	}
	return NACategoryName, false
}

/*
Name takes a level index known to be valid and returns its name; it
panics on indexes naming no level, which indicates a bug in the caller.
*/
func (m *CategoryMap) Name(index int) string {
	name, ok := m.NameFor(index)
	if !ok {
		panic(fmt.Sprintf("category index %d not found", index))
	}
	return name
}

/*
BeginIndex returns the lowest level index for enumeration: NoIndex when
the synthetic NA level is enabled, zero otherwise.
*/
func (m *CategoryMap) BeginIndex() int {
	if m.useNACategory {
		return NoIndex
	}
	return 0
}

/*
EndIndex returns one past the highest level index for enumeration.
*/
func (m *CategoryMap) EndIndex() int {
	return len(m.names)
}

/*
CountNamed returns the number of named levels, never counting the
synthetic NA level.
*/
func (m *CategoryMap) CountNamed() int {
	return len(m.names)
}

/*
Count returns the number of levels including the synthetic NA level when
it is enabled.
*/
func (m *CategoryMap) Count() int {
	if m.useNACategory {
		return len(m.names) + 1
	}
	return len(m.names)
}

/*
Names returns the named levels in insertion order. The returned slice is
shared and must not be modified.
*/
func (m *CategoryMap) Names() []string {
	return m.names
}
