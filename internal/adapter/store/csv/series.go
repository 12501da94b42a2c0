package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/precip-regions/internal/adapter/store"
	"go.ngs.io/precip-regions/internal/domain"
)

// Daily series file columns.
const (
	DateColumn          = "date"
	PrecipitationColumn = "precipitation"
)

// SeriesStore keeps one "<dir>/<id><suffix>.csv" file per region.
type SeriesStore struct {
	dir    string
	suffix string
}

// NewSeriesStore creates a store rooted at dir.
func NewSeriesStore(dir, suffix string) *SeriesStore {
	return &SeriesStore{dir: dir, suffix: suffix}
}

// Path returns the file used for a region.
func (s *SeriesStore) Path(regionID string) string {
	return filepath.Join(s.dir, regionID+s.suffix+".csv")
}

// WriteDaily writes the series with a date,precipitation header. NaN is
// written as an empty cell. The file is replaced atomically.
func (s *SeriesStore) WriteDaily(regionID string, records []domain.DailyRecord) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create series dir: %w", err)
	}

	path := s.Path(regionID)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := csv.NewWriter(tmp)
	if err := w.Write([]string{DateColumn, PrecipitationColumn}); err != nil {
		_ = tmp.Close()
		return err
	}
	for _, rec := range records {
		if err := w.Write([]string{rec.Date.Format(domain.DateLayout), FormatValue(rec.Precipitation)}); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write series for region %s: %w", regionID, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadDaily reads a region's series. Dates may carry a time suffix
// ("1981-01-01 00:00:00"); empty precipitation cells load as NaN.
func (s *SeriesStore) ReadDaily(regionID string) ([]domain.DailyRecord, error) {
	path := s.Path(regionID)
	//nolint:gosec // G304: path built from configured dir and registry id.
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: region %s (%s)", store.ErrSeriesNotFound, regionID, path)
		}
		return nil, fmt.Errorf("failed to open series for region %s: %w", regionID, err)
	}
	defer func() { _ = file.Close() }()

	records, err := ParseDaily(file)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", path, err)
	}
	return records, nil
}

// ParseDaily reads date,precipitation rows located by header name.
func ParseDaily(r io.Reader) ([]domain.DailyRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	dateIdx := columnIndex(header, DateColumn)
	precipIdx := columnIndex(header, PrecipitationColumn, "precip")
	if dateIdx < 0 || precipIdx < 0 {
		return nil, fmt.Errorf("invalid CSV header: expected %s and %s columns, got %v",
			DateColumn, PrecipitationColumn, header)
	}

	records := make([]domain.DailyRecord, 0, 366)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		date, err := parseDate(record[dateIdx])
		if err != nil {
			return nil, err
		}
		precip, err := parseValue(record[precipIdx])
		if err != nil {
			return nil, fmt.Errorf("invalid precipitation on %s: %w", record[dateIdx], err)
		}
		records = append(records, domain.DailyRecord{Date: date, Precipitation: precip})
	}
	return records, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(domain.DateLayout) {
		s = s[:len(domain.DateLayout)]
	}
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatValue renders a cell with the shortest exact representation; NaN is
// the empty string.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
