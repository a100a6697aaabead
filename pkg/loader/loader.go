// Package loader reads intcode programs from disk.
//
// Besides the usual comma-separated text, programs can be stored as a
// table with one cell per row (CSV, JSON or Parquet) or as a compiled
// .icbc image.
package loader

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
)

// DefaultColumn is the table column read when none is given.
const DefaultColumn = "cell"

// Error definitions
var (
	ErrNoColumn       = errors.New("column not found")
	ErrNonIntegerCell = errors.New("cell is not an integer")
	ErrUnknownFormat  = errors.New("unknown program format")
)

// Load reads the program at path, picking the format from its extension.
// column is only consulted for tables; empty means DefaultColumn.
func Load(path, column string) ([]int64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".intcode", ".ic", "":
		return LoadText(path)
	case ".csv":
		return LoadCSV(path, column)
	case ".json":
		return LoadJSON(path, column)
	case ".parquet":
		return LoadParquet(path, column)
	case ".icbc":
		return LoadImage(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Cells extracts one column of df as program cells, in row order.
// Integral floats and numeric strings are accepted; missing values are
// an error since a program has no holes.
func Cells(df *dataframe.DataFrame, column string) ([]int64, error) {
	if column == "" {
		column = DefaultColumn
	}

	series := findSeries(df, column)
	if series == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, column)
	}

	n := series.NRows()
	cells := make([]int64, n)
	for i := 0; i < n; i++ {
		v, err := toCell(series.Value(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		cells[i] = v
	}
	return cells, nil
}

// findSeries prefers an exact name match and falls back to a
// case-insensitive one, since Parquet writers often capitalise names.
func findSeries(df *dataframe.DataFrame, column string) dataframe.Series {
	var folded dataframe.Series
	for _, s := range df.Series {
		if s.Name() == column {
			return s
		}
		if folded == nil && strings.EqualFold(s.Name(), column) {
			folded = s
		}
	}
	return folded
}

func toCell(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case *int64:
		if v == nil {
			return 0, fmt.Errorf("%w: missing value", ErrNonIntegerCell)
		}
		return *v, nil
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("%w: %v", ErrNonIntegerCell, v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNonIntegerCell, v)
		}
		return n, nil
	case fmt.Stringer:
		return toCell(v.String())
	case nil:
		return 0, fmt.Errorf("%w: missing value", ErrNonIntegerCell)
	default:
		return 0, fmt.Errorf("%w: %T", ErrNonIntegerCell, value)
	}
}
