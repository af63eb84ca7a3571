/*
Package csv reads and writes dataset tables as comma-separated values.

The format keeps track of which cells were quoted, so that a quoted
token can be told apart from an unquoted one when the table is turned
into a dataset. A blank line ends the content; anything after it is
ignored.
*/
package csv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/quadrivio/entree/dataset"
)

/*
Scanner reads successive tables from a single CSV stream. Each call to
Next consumes one table and the blank line that terminates it, so that
a stream holding several blank-line-separated tables can be read table
by table.
*/
type Scanner struct {
	br *bufio.Reader
}

/*
NewScanner takes an io.Reader for a CSV stream and returns a Scanner
reading tables from it.
*/
func NewScanner(reader io.Reader) *Scanner {
	return &Scanner{br: bufio.NewReader(reader)}
}

/*
Next returns the next table of the stream. The first line holds the
column names. The table ends at the first blank line or at the end of
the stream, whichever comes first. At the end of the stream Next
returns a table with no column names and no rows.
*/
func (s *Scanner) Next() (*dataset.Table, error) {
	colNames, _, err := nextLine(s.br)
	if err != nil {
		return nil, fmt.Errorf("reading header: %v", err)
	}
	t := &dataset.Table{ColNames: colNames}
	for {
		cells, quoted, err := nextLine(s.br)
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %v", len(t.Cells)+1, err)
		}
		if cells == nil {
			break
		}
		t.Cells = append(t.Cells, cells)
		t.Quoted = append(t.Quoted, quoted)
	}
	return t, nil
}

/*
Read takes an io.Reader for a CSV stream and returns the table parsed
from it. The first line holds the column names. Reading stops at the
first blank line or at the end of the stream, whichever comes first.
*/
func Read(reader io.Reader) (*dataset.Table, error) {
	return NewScanner(reader).Next()
}

/*
ReadFile takes a filepath, opens the file it points to and uses Read to
return the table read from it. An empty filepath reads from os.Stdin.
*/
func ReadFile(filepath string) (*dataset.Table, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading CSV file: %v", err)
		}
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		err = fmt.Errorf("parsing CSV file %s: %v", filepath, err)
	}
	return t, err
}

/*
Write takes an io.Writer and a table and dumps the table to the writer
in CSV format. Column names are always written quoted. A data cell is
written quoted when its quoted flag is set or when it holds anything
other than digits and periods. Quotes within a cell are doubled.
*/
func Write(writer io.Writer, t *dataset.Table) error {
	w := bufio.NewWriter(writer)
	for col, name := range t.ColNames {
		if col > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.Replace(name, `"`, `""`, -1))
		w.WriteByte('"')
	}
	w.WriteByte('\n')

	for row := range t.Cells {
		for col, cell := range t.Cells[row] {
			if col > 0 {
				w.WriteByte(',')
			}
			needQuotes := t.Quoted[row][col]
			for k := 0; k < len(cell) && !needQuotes; k++ {
				c := cell[k]
				if (c < '0' || c > '9') && c != '.' {
					needQuotes = true
				}
			}
			if needQuotes {
				w.WriteByte('"')
			}
			w.WriteString(strings.Replace(cell, `"`, `""`, -1))
			if needQuotes {
				w.WriteByte('"')
			}
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing CSV: %v", err)
	}
	return nil
}

/*
WriteFile takes a filepath and a table, creates the file the filepath
points to and uses Write to dump the table to it. An empty filepath
writes to os.Stdout.
*/
func WriteFile(filepath string, t *dataset.Table) error {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdout
	} else {
		f, err = os.Create(filepath)
		if err != nil {
			return fmt.Errorf("writing CSV file: %v", err)
		}
		defer f.Close()
	}
	if err = Write(f, t); err != nil {
		return fmt.Errorf("writing CSV file %s: %v", filepath, err)
	}
	return nil
}

// nextLine reads and parses one line. It returns nil cells when a blank
// line or the end of the stream terminates the content. A line of only
// spaces and tabs yields an empty, non-nil cell slice.
func nextLine(br *bufio.Reader) ([]string, []bool, error) {
	str, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	str = strings.TrimSuffix(str, "\n")
	str = strings.TrimSuffix(str, "\r")
	if len(str) == 0 {
		return nil, nil, nil
	}

	cells := []string{}
	quoted := []bool{}
	start := 0
	for start < len(str) {
		for start < len(str) && (str[start] == ' ' || str[start] == '\t') {
			start++
		}
		if start >= len(str) {
			break
		}

		if str[start] == '"' {
			start++
			end := start
			var cell strings.Builder
			for done := false; !done; {
				switch {
				case end == len(str):
					// no closing quote before the end of the line
					cell.WriteString(str[start:end])
					done = true
				case str[end] != '"':
					end++
				case end+1 == len(str):
					// line ends at the closing quote
					cell.WriteString(str[start:end])
					done = true
				case str[end+1] == '"':
					// doubled quote stands for a literal quote
					end++
					cell.WriteString(str[start:end])
					end++
					start = end
				case str[end+1] == ',':
					cell.WriteString(str[start:end])
					end++
					done = true
				default:
					// lone quote inside the cell is dropped
					cell.WriteString(str[start:end])
					end++
					start = end
				}
			}
			cells = append(cells, cell.String())
			quoted = append(quoted, true)
			start = end + 1
		} else {
			end := start
			for end < len(str) && str[end] != ',' {
				end++
			}
			cells = append(cells, str[start:end])
			quoted = append(quoted, false)
			start = end + 1
		}
	}
	return cells, quoted, nil
}
