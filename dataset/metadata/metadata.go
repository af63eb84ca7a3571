/*
Package metadata parses column declarations, also known as metadata,
from YAML documents and from single-line CSV files.

A YAML document declares column types by name under a columns property,
impute options by name under an impute property, and optionally the
column order under a names property for inputs that carry no header:

	names: [sepal_length, sepal_width, species]
	columns:
	  sepal_length: numeric
	  sepal_width: numeric
	  species: categorical
	impute:
	  sepal_length: median
	  sepal_width: mean

A single-line CSV file instead declares types or impute options
positionally, one per data column in column order.
*/
package metadata

import (
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/quadrivio/entree/dataset/csv"
	"github.com/quadrivio/entree/value"
	yaml "gopkg.in/yaml.v2"
)

/*
Types holds the column types declared in a metadata file. Exactly one
of ByName and Positional is set: ByName maps column names to types for
the YAML form, Positional lists one type per data column in column
order for the CSV form. Names lists the column order for inputs that
carry no header and is only set for YAML documents with a names
property.
*/
type Types struct {
	Names      []string
	ByName     map[string]value.Type
	Positional []value.Type
}

/*
Imputes holds the impute option names declared in a metadata file, by
column name for the YAML form or one per data column in column order
for the CSV form. The names stay strings until the column types fix
which options they stand for.
*/
type Imputes struct {
	ByName     map[string]string
	Positional []string
}

/*
ReadTypes takes a slice of bytes with a column declaration in YML and
returns the types parsed from it or an error.
The YML is expected to be an object containing a columns property
mapping each column name to "numeric" or "categorical", and optionally
a names property listing the columns in order; every listed name must
be typed under columns.
*/
func ReadTypes(md []byte) (*Types, error) {
	doc := struct {
		Names   []string
		Columns map[string]string
	}{}
	err := yaml.Unmarshal(md, &doc)
	if err != nil {
		return nil, fmt.Errorf("parsing yml metadata: %v", err)
	}
	if doc.Columns == nil {
		return nil, fmt.Errorf("metadata has no column information")
	}
	byName := make(map[string]value.Type, len(doc.Columns))
	for name, typeName := range doc.Columns {
		t, err := value.ParseType(typeName)
		if err != nil {
			return nil, fmt.Errorf("column %s: %v", name, err)
		}
		byName[name] = t
	}
	for _, name := range doc.Names {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("column %s is listed under names but not typed under columns", name)
		}
	}
	return &Types{Names: doc.Names, ByName: byName}, nil
}

/*
ReadTypesFile takes a filepath string and returns the types parsed from
its contents. Files ending in .yml or .yaml are parsed with ReadTypes;
anything else is read as a single CSV line of type names in column
order.
*/
func ReadTypesFile(filepath string) (*Types, error) {
	if isYAMLPath(filepath) {
		md, err := ioutil.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading metadata file %s: %v", filepath, err)
		}
		types, err := ReadTypes(md)
		if err != nil {
			err = fmt.Errorf("parsing metadata file %s: %v", filepath, err)
		}
		return types, err
	}
	entries, err := csvLine(filepath)
	if err != nil {
		return nil, err
	}
	positional := make([]value.Type, len(entries))
	for k, entry := range entries {
		t, err := value.ParseType(entry)
		if err != nil {
			return nil, fmt.Errorf("parsing metadata file %s: %v", filepath, err)
		}
		positional[k] = t
	}
	return &Types{Positional: positional}, nil
}

/*
ReadImputes takes a slice of bytes with an impute declaration in YML
and returns the option names parsed from it or an error.
The YML is expected to be an object containing an impute property
mapping column names to impute option names.
*/
func ReadImputes(md []byte) (*Imputes, error) {
	doc := struct {
		Impute map[string]string
	}{}
	err := yaml.Unmarshal(md, &doc)
	if err != nil {
		return nil, fmt.Errorf("parsing yml metadata: %v", err)
	}
	if doc.Impute == nil {
		return nil, fmt.Errorf("metadata has no impute information")
	}
	return &Imputes{ByName: doc.Impute}, nil
}

/*
ReadImputesFile takes a filepath string and returns the impute option
names parsed from its contents. Files ending in .yml or .yaml are
parsed with ReadImputes; anything else is read as a single CSV line of
option names in column order.
*/
func ReadImputesFile(filepath string) (*Imputes, error) {
	if isYAMLPath(filepath) {
		md, err := ioutil.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading metadata file %s: %v", filepath, err)
		}
		imputes, err := ReadImputes(md)
		if err != nil {
			err = fmt.Errorf("parsing metadata file %s: %v", filepath, err)
		}
		return imputes, err
	}
	entries, err := csvLine(filepath)
	if err != nil {
		return nil, err
	}
	return &Imputes{Positional: entries}, nil
}

func isYAMLPath(filepath string) bool {
	return strings.HasSuffix(filepath, ".yml") || strings.HasSuffix(filepath, ".yaml")
}

// csvLine reads the first line of a CSV metadata file.
func csvLine(filepath string) ([]string, error) {
	t, err := csv.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	if len(t.ColNames) == 0 {
		return nil, fmt.Errorf("metadata file %s declares no columns", filepath)
	}
	return t.ColNames, nil
}
