// Package table writes extraction tables to disk.
package table

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"

	parquet "github.com/parquet-go/parquet-go"

	"go.ngs.io/precip-regions/internal/adapter/store"
	csvstore "go.ngs.io/precip-regions/internal/adapter/store/csv"
	"go.ngs.io/precip-regions/internal/domain"
)

// Output formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// NewWriter returns the table writer for format; empty means CSV.
func NewWriter(format string) (store.TableWriter, error) {
	switch format {
	case "", FormatCSV:
		return CSVWriter{}, nil
	case FormatParquet:
		return ParquetWriter{}, nil
	}
	return nil, fmt.Errorf("unknown table format %q (use %s or %s)", format, FormatCSV, FormatParquet)
}

// CSVWriter writes the wide layout: one row per region, one column per
// period, identifier first or last as the table says.
type CSVWriter struct{}

// WriteTable writes t to path atomically.
func (CSVWriter) WriteTable(path string, t *domain.Table) error {
	return writeAtomic(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(t.Header()); err != nil {
			return err
		}
		record := make([]string, len(t.Columns)+1)
		for _, row := range t.Rows {
			if len(row.Values) != len(t.Columns) {
				return fmt.Errorf("%w: row %s has %d values for %d columns",
					domain.ErrShapeMismatch, row.ID, len(row.Values), len(t.Columns))
			}
			cells := record[:0]
			if t.IDFirst {
				cells = append(cells, row.ID)
			}
			for _, v := range row.Values {
				cells = append(cells, csvstore.FormatValue(v))
			}
			if !t.IDFirst {
				cells = append(cells, row.ID)
			}
			if err := w.Write(cells); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

// LongRow is one (region, column) cell of the long layout. A nil Value is a
// missing cell.
type LongRow struct {
	RegionID string   `parquet:"region_id"`
	Column   string   `parquet:"column"`
	Value    *float64 `parquet:"value"`
}

// ParquetWriter writes the long layout, which keeps the schema fixed
// regardless of how many periods a run covers.
type ParquetWriter struct{}

// WriteTable writes t to path atomically.
func (ParquetWriter) WriteTable(path string, t *domain.Table) error {
	rows, err := LongRows(t)
	if err != nil {
		return err
	}
	return writeAtomic(path, func(f *os.File) error {
		w := parquet.NewGenericWriter[LongRow](f)
		if _, err := w.Write(rows); err != nil {
			return err
		}
		return w.Close()
	})
}

// LongRows flattens t in row-major order.
func LongRows(t *domain.Table) ([]LongRow, error) {
	rows := make([]LongRow, 0, len(t.Rows)*len(t.Columns))
	for _, row := range t.Rows {
		if len(row.Values) != len(t.Columns) {
			return nil, fmt.Errorf("%w: row %s has %d values for %d columns",
				domain.ErrShapeMismatch, row.ID, len(row.Values), len(t.Columns))
		}
		for i, v := range row.Values {
			lr := LongRow{RegionID: row.ID, Column: t.Columns[i]}
			if !math.IsNaN(v) {
				val := v
				lr.Value = &val
			}
			rows = append(rows, lr)
		}
	}
	return rows, nil
}

// writeAtomic writes through a .tmp file renamed into place on success.
func writeAtomic(path string, write func(f *os.File) error) error {
	tmp := path + ".tmp"
	//nolint:gosec // G304: output path comes from configuration.
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
