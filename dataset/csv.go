// Package dataset loads tabular CSV data into gonum matrices and writes
// augmented results back out.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/scratchml/scratchml/pkg/errors"
	"github.com/scratchml/scratchml/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Table holds a loaded CSV file: the numeric feature matrix, the optional
// target column, and the raw records so results can be written back with the
// original columns preserved.
type Table struct {
	header       []string
	records      [][]string
	featureNames []string
	x            *mat.Dense
	y            *mat.Dense
}

// LoadOption configures LoadCSV.
type LoadOption func(*loadConfig)

type loadConfig struct {
	target string
}

// WithTarget designates a header column as the label vector. The column must
// be numeric and is excluded from the feature matrix.
func WithTarget(name string) LoadOption {
	return func(cfg *loadConfig) {
		cfg.target = name
	}
}

// LoadCSV reads a header-prefixed CSV file. Columns whose every value parses
// as a float64 become features; a column designated by WithTarget becomes the
// label vector. Non-numeric columns (other than the target) are skipped with
// a debug log and a DataConversionWarning.
func LoadCSV(path string, opts ...LoadOption) (*Table, error) {
	cfg := &loadConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if len(rows) < 2 {
		return nil, errors.NewModelError("dataset.LoadCSV", "empty data", errors.ErrEmptyData)
	}

	header := rows[0]
	records := rows[1:]
	nRows := len(records)

	targetCol := -1
	if cfg.target != "" {
		for j, name := range header {
			if name == cfg.target {
				targetCol = j
				break
			}
		}
		if targetCol < 0 {
			return nil, errors.NewValueError("dataset.LoadCSV",
				fmt.Sprintf("target column %q not found in header", cfg.target))
		}
	}

	logger := log.GetLoggerWithName("dataset.csv")

	// Classify each column by attempting to parse every value.
	var featureCols []int
	var featureNames []string
	for j, name := range header {
		if j == targetCol {
			continue
		}
		numeric := true
		for i := 0; i < nRows; i++ {
			if _, err := strconv.ParseFloat(records[i][j], 64); err != nil {
				numeric = false
				break
			}
		}
		if !numeric {
			logger.Debug("skipping non-numeric column", "column", name)
			errors.Warn(errors.NewDataConversionWarning("string", "dropped",
				fmt.Sprintf("non-numeric column %q skipped", name)))
			continue
		}
		featureCols = append(featureCols, j)
		featureNames = append(featureNames, name)
	}
	if len(featureCols) == 0 {
		return nil, errors.NewValueError("dataset.LoadCSV", "no numeric feature columns found")
	}

	x := mat.NewDense(nRows, len(featureCols), nil)
	for i := 0; i < nRows; i++ {
		for k, j := range featureCols {
			v, err := strconv.ParseFloat(records[i][j], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing row %d column %q", i+2, header[j])
			}
			x.Set(i, k, v)
		}
	}

	var y *mat.Dense
	if targetCol >= 0 {
		y = mat.NewDense(nRows, 1, nil)
		for i := 0; i < nRows; i++ {
			v, err := strconv.ParseFloat(records[i][targetCol], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing target at row %d", i+2)
			}
			y.Set(i, 0, v)
		}
	}

	logger.Debug("loaded CSV",
		"path", path,
		"n_samples", nRows,
		"n_features", len(featureCols),
	)

	return &Table{
		header:       header,
		records:      records,
		featureNames: featureNames,
		x:            x,
		y:            y,
	}, nil
}

// X returns the numeric feature matrix.
func (t *Table) X() *mat.Dense {
	return t.x
}

// Y returns the target column and whether one was designated.
func (t *Table) Y() (*mat.Dense, bool) {
	if t.y == nil {
		return nil, false
	}
	return t.y, true
}

// FeatureNames returns the names of the numeric feature columns.
func (t *Table) FeatureNames() []string {
	names := make([]string, len(t.featureNames))
	copy(names, t.featureNames)
	return names
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.records)
}

// AppendIntColumn adds a new integer column to the table, one value per row.
// The column participates in SaveCSV output but not in the feature matrix.
func (t *Table) AppendIntColumn(name string, values []int) error {
	if len(values) != len(t.records) {
		return errors.NewDimensionError("Table.AppendIntColumn", len(t.records), len(values), 0)
	}
	t.header = append(t.header, name)
	for i := range t.records {
		t.records[i] = append(t.records[i], strconv.Itoa(values[i]))
	}
	return nil
}

// SaveCSV writes the table, including any appended columns, to path.
func (t *Table) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.header); err != nil {
		return errors.Wrapf(err, "writing header to %s", path)
	}
	for i, record := range t.records {
		if err := w.Write(record); err != nil {
			return errors.Wrapf(err, "writing row %d to %s", i+2, path)
		}
	}
	w.Flush()
	return errors.WithStack(w.Error())
}
