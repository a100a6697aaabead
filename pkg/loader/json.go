package loader

import (
	"bytes"
	"context"
	"errors"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// JSON-specific errors
var (
	ErrEmptyJSON = errors.New("empty JSON file")
)

// LoadJSON reads a program stored as a JSON array of row objects:
// [{"cell": 1}, {"cell": 0}, ...]
func LoadJSON(path, column string) ([]int64, error) {
	df, err := ReadJSON(path)
	if err != nil {
		return nil, err
	}
	return Cells(df, column)
}

// ReadJSON reads a JSON file containing an array of objects and returns a DataFrame.
func ReadJSON(path string) (*dataframe.DataFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, ErrEmptyJSON
	}

	df, err := imports.LoadFromJSON(context.Background(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptyJSON
	}

	return df, nil
}
