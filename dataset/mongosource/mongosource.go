/*
Package mongosource reads and writes datasets over a MongoDB database.

Each dataset row is stored as one document in the rows collection of the
session's default database, with categorical cells stored as their level
names, numeric cells as doubles and NA cells left out of the document.
The database stores no column metadata of its own, so a Source is
constructed with the column names and types it exchanges.
*/
package mongosource

import (
	"context"
	"fmt"
	"strings"

	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/value"
)

const rowsCollectionName = "rows"

// Source exchanges datasets with a MongoDB rows collection.
type Source struct {
	session *mgo.Session
	names   []string
	types   []value.Type
}

/*
Open takes a MongoDB database session and the names and types of the
columns to exchange and returns a Source that works on the default
database for that session, or an error when a column name cannot serve
as a document field or indexing fails.
*/
func Open(ctx context.Context, session *mgo.Session, names []string, types []value.Type) (*Source, error) {
	if len(names) != len(types) {
		return nil, fmt.Errorf("mongo source: %d column names for %d types", len(names), len(types))
	}
	s := &Source{session: session, names: names, types: types}
	if err := s.ensureIndexes(); err != nil {
		return nil, err
	}
	return s, nil
}

/*
Write appends the rows of ds to the rows collection and returns the
number of rows written.
*/
func (s *Source) Write(ctx context.Context, ds *dataset.Dataset) (int, error) {
	if err := s.checkShape(ds); err != nil {
		return 0, err
	}
	docs := make([]interface{}, 0, ds.NumRows())
	for row := 0; row < ds.NumRows(); row++ {
		doc := make(bson.M)
		for col, name := range s.names {
			v := ds.Columns[col][row]
			if v.NA {
				continue
			}
			if s.types[col] == value.Categorical {
				doc[name] = ds.Categories[col].Name(v.Index)
			} else {
				doc[name] = v.Float
			}
		}
		docs = append(docs, doc)
	}
	if err := s.rowsCollection().Insert(docs...); err != nil {
		return 0, fmt.Errorf("writing rows: %v", err)
	}
	return len(docs), nil
}

/*
Read returns the whole rows collection as a dataset. A nil categories
slice builds fresh category maps as levels appear; passing the category
maps of a trained model instead keeps level indexes aligned with the
model, with levels the model does not know read as NA. The maps are
shared with the returned dataset, not copied.
*/
func (s *Source) Read(ctx context.Context, categories []*value.CategoryMap) (*dataset.Dataset, error) {
	if categories != nil && len(categories) != len(s.names) {
		return nil, fmt.Errorf("reading rows: %d category maps for %d columns", len(categories), len(s.names))
	}
	ds := &dataset.Dataset{
		Names:      append([]string(nil), s.names...),
		Types:      append([]value.Type(nil), s.types...),
		Columns:    make([][]value.Value, len(s.names)),
		Categories: categories,
	}
	if ds.Categories == nil {
		ds.Categories = make([]*value.CategoryMap, len(s.names))
		for col := range ds.Categories {
			ds.Categories[col] = value.NewCategoryMap()
		}
	}

	iter := s.rowsCollection().Find(bson.M{}).Iter()
	defer iter.Close()
	// An absent field marks an NA cell and Next does not clear a reused
	// map, so each row decodes into a fresh document.
	for doc := make(bson.M); iter.Next(&doc); doc = make(bson.M) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for col, name := range s.names {
			v, err := s.cellValue(doc[name], col, ds.Categories[col], categories != nil)
			if err != nil {
				return nil, fmt.Errorf("reading rows: %v", err)
			}
			ds.Columns[col] = append(ds.Columns[col], v)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %v", err)
	}
	return ds, nil
}

// Count returns the number of rows stored.
func (s *Source) Count(ctx context.Context) (int, error) {
	n, err := s.rowsCollection().Count()
	if err != nil {
		return 0, fmt.Errorf("counting rows: %v", err)
	}
	return n, nil
}

// cellValue converts one document field to a dataset value. A missing
// field is an NA, as is an unknown level when the category maps are
// constant.
func (s *Source) cellValue(cell interface{}, col int, m *value.CategoryMap, constantCategories bool) (value.Value, error) {
	if cell == nil {
		return value.NA(), nil
	}
	if s.types[col] == value.Categorical {
		name, ok := cell.(string)
		if !ok {
			return value.NA(), fmt.Errorf("column %q holds a %T instead of a level name", s.names[col], cell)
		}
		if constantCategories {
			index, found := m.IndexFor(name)
			if !found {
				return value.NA(), nil
			}
			return value.Level(index), nil
		}
		return value.Level(m.FindOrInsert(name)), nil
	}
	switch number := cell.(type) {
	case float64:
		return value.Number(number), nil
	case int:
		return value.Number(float64(number)), nil
	case int64:
		return value.Number(float64(number)), nil
	}
	return value.NA(), fmt.Errorf("column %q holds a %T instead of a number", s.names[col], cell)
}

func (s *Source) checkShape(ds *dataset.Dataset) error {
	if ds.NumCols() != len(s.names) {
		return fmt.Errorf("writing rows: dataset has %d columns, source stores %d", ds.NumCols(), len(s.names))
	}
	for col, t := range s.types {
		if ds.Types[col] != t {
			return fmt.Errorf("writing rows: column %q is %s, source stores %s", ds.Names[col], ds.Types[col], t)
		}
	}
	return nil
}

func (s *Source) ensureIndexes() error {
	for _, name := range s.names {
		if name == "_id" {
			return fmt.Errorf("invalid column name %q: reserved document field", "_id")
		}
		if strings.ContainsAny(name, ".$") {
			return fmt.Errorf("invalid column name %q: contains reserved characters %q or %q", name, ".", "$")
		}
		index := mgo.Index{
			Key:        []string{name},
			Background: true,
			Sparse:     true,
		}
		if err := s.rowsCollection().EnsureIndex(index); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) rowsCollection() *mgo.Collection {
	return s.session.DB("").C(rowsCollectionName)
}
