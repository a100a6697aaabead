package loader

import (
	"context"
	"errors"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// CSV-specific errors
var (
	ErrEmptyFile = errors.New("empty CSV file")
)

// LoadCSV reads a program stored as a CSV table, one cell per row in
// the named column.
func LoadCSV(path, column string) ([]int64, error) {
	df, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}
	return Cells(df, column)
}

// ReadCSV reads a CSV file and returns a DataFrame using dataframe-go.
// - First row is header (column names)
// - Column types are inferred, so cells come back as int64
func ReadCSV(path string) (*dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ctx := context.Background()
	df, err := imports.LoadFromCSV(ctx, file, imports.CSVLoadOptions{
		InferDataTypes: true,
	})
	if err != nil {
		return nil, err
	}

	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptyFile
	}

	return df, nil
}
