package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/quadrivio/entree/dataset"
	"github.com/quadrivio/entree/dataset/mongosource"
	"github.com/quadrivio/entree/dataset/sqlsource"
	"github.com/quadrivio/entree/dataset/sqlsource/pgadapter"
	"github.com/quadrivio/entree/dataset/sqlsource/sqlite3adapter"
	"github.com/quadrivio/entree/model"
	"github.com/quadrivio/entree/model/redisstore"
	"github.com/quadrivio/entree/value"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/redis.v5"
)

// naString is the unquoted cell standing for a missing value in the
// CSV files the commands exchange.
const naString = "NA"

// modelKeyPrefix prefixes the redis keys models are stored under.
const modelKeyPrefix = "entree:models"

// tableSource reads and writes datasets kept in a database instead of
// a CSV file.
type tableSource interface {
	Read(ctx context.Context, categories []*value.CategoryMap) (*dataset.Dataset, error)
	Write(ctx context.Context, ds *dataset.Dataset) (int, error)
}

// isTableLocation tells tabular locations served by a database source
// apart from CSV file paths.
func isTableLocation(location string) bool {
	return strings.HasPrefix(location, "postgresql://") ||
		strings.HasPrefix(location, "mongodb://") ||
		strings.HasSuffix(location, ".db")
}

/*
openTableSource opens the table at a database location: a PostgreSQL
connection URL, a MongoDB connection URL or the path to an SQLite3
(.db) file. The source exchanges datasets with the given columns, in
order. When create is set the SQL schema for the columns is set up
before the source is returned, for locations the table will be written
to.
*/
func openTableSource(ctx context.Context, location string, names []string, types []value.Type, create bool, config *rootCmdConfig) (tableSource, error) {
	switch {
	case strings.HasPrefix(location, "postgresql://"):
		config.Logf("Creating PostgreSQL adapter for url %s...", location)
		adapter, err := pgadapter.New(location)
		if err != nil {
			return nil, err
		}
		return openSQLSource(ctx, adapter, names, types, create)
	case strings.HasSuffix(location, ".db"):
		config.Logf("Creating SQLite3 adapter for file %s...", location)
		adapter, err := sqlite3adapter.New(location)
		if err != nil {
			return nil, err
		}
		return openSQLSource(ctx, adapter, names, types, create)
	case strings.HasPrefix(location, "mongodb://"):
		config.Logf("Dialing MongoDB at %s...", location)
		session, err := mgo.Dial(location)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %v", location, err)
		}
		return mongosource.Open(ctx, session, names, types)
	}
	return nil, fmt.Errorf("no table source serves %s", location)
}

func openSQLSource(ctx context.Context, adapter sqlsource.Adapter, names []string, types []value.Type, create bool) (tableSource, error) {
	source, err := sqlsource.New(adapter, names, types)
	if err != nil {
		return nil, err
	}
	if create {
		if err := source.Init(ctx); err != nil {
			return nil, err
		}
	}
	return source, nil
}

// isStoreLocation reports whether a model location points to a model
// store instead of a file.
func isStoreLocation(location string) bool {
	return strings.HasPrefix(location, "redis://")
}

/*
modelStoreFor opens the model store a redis URL points to and returns
it along with the model name the URL carries in its fragment, as in
redis://localhost:6379/0#iris.
*/
func modelStoreFor(location string) (model.Store, string, error) {
	address, name := splitStoreLocation(location)
	if name == "" {
		return nil, "", fmt.Errorf("the model store URL %s names no model; append #name", location)
	}
	options, err := redisOptions(address)
	if err != nil {
		return nil, "", fmt.Errorf("parsing model store URL %s: %v", address, err)
	}
	return redisstore.New(redis.NewClient(options), modelKeyPrefix), name, nil
}

// redisOptions parses a redis://[:password@]host:port[/db] URL into
// client options; the redis.v5 client has no URL parser of its own.
func redisOptions(address string) (*redis.Options, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	options := &redis.Options{Addr: u.Host}
	if u.User != nil {
		if password, ok := u.User.Password(); ok {
			options.Password = password
		}
	}
	if path := strings.TrimPrefix(u.Path, "/"); path != "" {
		db, err := strconv.Atoi(path)
		if err != nil {
			return nil, fmt.Errorf("database %q in the store URL is not a number", path)
		}
		options.DB = db
	}
	return options, nil
}

// splitStoreLocation cuts the model name fragment off a store URL.
func splitStoreLocation(location string) (string, string) {
	parts := strings.SplitN(location, "#", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
