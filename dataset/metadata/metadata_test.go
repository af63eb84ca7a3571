package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quadrivio/entree/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMetadataFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadTypes(t *testing.T) {
	t.Run("document with names and columns", func(t *testing.T) {
		types, err := ReadTypes([]byte(`
names: [sepal_length, species]
columns:
  sepal_length: numeric
  species: categorical
`))
		require.NoError(t, err)
		assert.Equal(t, []string{"sepal_length", "species"}, types.Names)
		assert.Equal(t, value.Numeric, types.ByName["sepal_length"])
		assert.Equal(t, value.Categorical, types.ByName["species"])
		assert.Nil(t, types.Positional)
	})
	t.Run("columns only", func(t *testing.T) {
		types, err := ReadTypes([]byte("columns:\n  x: n\n  c0: cat\n"))
		require.NoError(t, err)
		assert.Nil(t, types.Names)
		assert.Equal(t, value.Numeric, types.ByName["x"])
		assert.Equal(t, value.Categorical, types.ByName["c0"])
	})
	t.Run("no column information", func(t *testing.T) {
		_, err := ReadTypes([]byte("impute:\n  x: median\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no column information")
	})
	t.Run("unknown type name", func(t *testing.T) {
		_, err := ReadTypes([]byte("columns:\n  x: ordinal\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "column x")
	})
	t.Run("named but untyped column", func(t *testing.T) {
		_, err := ReadTypes([]byte("names: [x, y]\ncolumns:\n  x: numeric\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "column y")
	})
	t.Run("broken yml", func(t *testing.T) {
		_, err := ReadTypes([]byte("columns: ["))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing yml metadata")
	})
}

func TestReadTypesFile(t *testing.T) {
	t.Run("yml document", func(t *testing.T) {
		path := writeMetadataFile(t, "columns.yml", "columns:\n  x: numeric\n")
		types, err := ReadTypesFile(path)
		require.NoError(t, err)
		assert.Equal(t, value.Numeric, types.ByName["x"])
	})
	t.Run("single csv line", func(t *testing.T) {
		path := writeMetadataFile(t, "types.csv", "n,c,n\n")
		types, err := ReadTypesFile(path)
		require.NoError(t, err)
		assert.Nil(t, types.ByName)
		assert.Equal(t, []value.Type{value.Numeric, value.Categorical, value.Numeric}, types.Positional)
	})
	t.Run("quoted csv entries", func(t *testing.T) {
		path := writeMetadataFile(t, "types.csv", "\"numeric\",\"categorical\"\n")
		types, err := ReadTypesFile(path)
		require.NoError(t, err)
		assert.Equal(t, []value.Type{value.Numeric, value.Categorical}, types.Positional)
	})
	t.Run("unknown csv type name", func(t *testing.T) {
		path := writeMetadataFile(t, "types.csv", "n,x\n")
		_, err := ReadTypesFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), path)
	})
	t.Run("empty file", func(t *testing.T) {
		path := writeMetadataFile(t, "types.csv", "\n")
		_, err := ReadTypesFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "declares no columns")
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadTypesFile(filepath.Join(t.TempDir(), "absent.yml"))
		require.Error(t, err)
	})
}

func TestReadImputes(t *testing.T) {
	t.Run("document with impute options", func(t *testing.T) {
		imputes, err := ReadImputes([]byte("impute:\n  x: median\n  species: mode\n"))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"x": "median", "species": "mode"}, imputes.ByName)
		assert.Nil(t, imputes.Positional)
	})
	t.Run("no impute information", func(t *testing.T) {
		_, err := ReadImputes([]byte("columns:\n  x: numeric\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no impute information")
	})
}

func TestReadImputesFile(t *testing.T) {
	t.Run("yml document", func(t *testing.T) {
		path := writeMetadataFile(t, "impute.yaml", "impute:\n  x: mean\n")
		imputes, err := ReadImputesFile(path)
		require.NoError(t, err)
		assert.Equal(t, "mean", imputes.ByName["x"])
	})
	t.Run("single csv line", func(t *testing.T) {
		path := writeMetadataFile(t, "impute.csv", "\"median\",mode,none\n")
		imputes, err := ReadImputesFile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"median", "mode", "none"}, imputes.Positional)
	})
}
