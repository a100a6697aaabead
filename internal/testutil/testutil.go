// Package testutil provides fixtures shared by the intcode tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

// Quine outputs a copy of itself.
const Quine = "109,1,204,-1,1001,100,1,100,1008,100,16,101,1006,101,0,99"

// Doubler reads one value, outputs twice that value, and halts.
const Doubler = "3,9,1002,9,2,9,4,9,99,0"

// Echo outputs every input until it reads a 0.
const Echo = "3,11,1006,11,10,4,11,1105,1,0,99,0"

// TempFile creates a temporary file with the given content and name.
// The file is automatically cleaned up when the test finishes.
func TempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// CellsCSV renders cells as a one-column CSV table.
func CellsCSV(column string, cells ...int64) string {
	var b strings.Builder
	b.WriteString(column)
	for _, c := range cells {
		fmt.Fprintf(&b, "\n%d", c)
	}
	return b.String()
}

// CellsJSON renders cells as a JSON array of row objects.
func CellsJSON(column string, cells ...int64) string {
	rows := make([]string, len(cells))
	for i, c := range cells {
		rows[i] = fmt.Sprintf("{%q: %d}", column, c)
	}
	return "[" + strings.Join(rows, ", ") + "]"
}

// parquetRow is one row of a Parquet program table.
type parquetRow struct {
	Cell int64 `parquet:"name=cell, type=INT64"`
}

// ParquetFile writes cells as a Parquet table with a "cell" column and
// returns its path.
func ParquetFile(t *testing.T, name string, cells ...int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		t.Fatalf("failed to create parquet file: %v", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		t.Fatalf("failed to create parquet writer: %v", err)
	}
	for _, c := range cells {
		if err := pw.Write(parquetRow{Cell: c}); err != nil {
			t.Fatalf("failed to write parquet row: %v", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		t.Fatalf("failed to finish parquet file: %v", err)
	}
	return path
}

// CellFrame builds an in-memory program table.
func CellFrame(column string, cells ...int64) *dataframe.DataFrame {
	vals := make([]interface{}, len(cells))
	for i, c := range cells {
		vals[i] = c
	}
	return dataframe.NewDataFrame(
		dataframe.NewSeriesInt64(column, nil, vals...),
	)
}

// AssertCells checks that two cell sequences are equal.
func AssertCells(t *testing.T, expected, actual []int64) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("expected %d cells %v, got %d cells %v", len(expected), expected, len(actual), actual)
		return
	}
	for i := range expected {
		if expected[i] != actual[i] {
			t.Errorf("cell %d: expected %d, got %d", i, expected[i], actual[i])
		}
	}
}
