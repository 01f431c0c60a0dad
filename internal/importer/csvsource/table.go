package csvsource

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// utf8BOM prefixes files saved by spreadsheet tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// row is one data record keyed by header name.
type row struct {
	file string
	line int
	vals map[string]string
}

// str returns the trimmed value of column.
func (r row) str(column string) string {
	return strings.TrimSpace(r.vals[column])
}

// integer parses column as a base-10 integer.
func (r row) integer(column string) (int, error) {
	v := r.str(column)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s line %d: column %q: %q is not an integer", r.file, r.line, column, v)
	}
	return n, nil
}

// number parses column as a decimal number.
func (r row) number(column string) (float64, error) {
	v := r.str(column)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s line %d: column %q: %q is not a number", r.file, r.line, column, v)
	}
	return f, nil
}

// readTable parses a headed CSV file, stripping a leading UTF-8 BOM.
//
// Precondition: required lists the columns the header must contain.
// Postcondition: Returns one row per data record, or an error naming the file
// and line of the first problem.
func readTable(path, name string, required []string) ([]row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: missing header row", name)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", name, col)
		}
	}

	var rows []row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		line, _ := r.FieldPos(0)
		vals := make(map[string]string, len(index))
		for col, i := range index {
			vals[col] = rec[i]
		}
		rows = append(rows, row{file: name, line: line, vals: vals})
	}
	return rows, nil
}
