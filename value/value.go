package value

import (
	"fmt"
	"strings"
)

/*
NoIndex marks the absence of an index: the synthetic NA level of a
CategoryMap, a leaf node's child references and a leaf node's split
column all use it.
*/
const NoIndex = -1

/*
Type identifies how the cells of a column are interpreted: as real
numbers or as levels of a finite named set.
*/
type Type int

const (
	// Numeric columns hold real values.
	Numeric Type = iota
	// Categorical columns hold indexes into a CategoryMap.
	Categorical
)

func (t Type) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	}
	return fmt.Sprintf("unknown type %d", int(t))
}

/*
ParseType takes the name of a column type and returns the Type it
identifies. Names are matched case-insensitively by their first letter,
so "c", "cat" and "Categorical" all parse as Categorical. An error is
returned for names that identify no type.
*/
func ParseType(s string) (Type, error) {
	switch {
	case strings.HasPrefix(strings.ToLower(s), "c"):
		return Categorical, nil
	case strings.HasPrefix(strings.ToLower(s), "n"):
		return Numeric, nil
	}
	return 0, fmt.Errorf("invalid column type %q", s)
}

/*
Value represents a single dataset cell. For numeric columns the payload
is Float, for categorical columns it is Index. The NA flag is the only
missing-value signal: when it is set the payload is zero and must not be
read. NaN never marks a missing value.
*/
type Value struct {
	Float float64
	Index int
	NA    bool
}

/*
NA returns the distinguished missing value.
*/
func NA() Value {
	return Value{NA: true}
}

/*
Number takes a float and returns the numeric value holding it.
*/
func Number(f float64) Value {
	return Value{Float: f}
}

/*
Level takes a category index and returns the categorical value holding
it.
*/
func Level(i int) Value {
	return Value{Index: i}
}
