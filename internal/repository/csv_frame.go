package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ContractScan/internal/domain/models"
)

const csvDateLayout = "2006-01-02"

// WriteFrame writes a Date column followed by one column per frame column. NaN is written empty.
func WriteFrame(w io.Writer, f *models.Frame) error {
	cw := csv.NewWriter(w)
	cols := f.Columns()
	if err := cw.Write(append([]string{"Date"}, cols...)); err != nil {
		return err
	}
	row := make([]string, len(cols)+1)
	for i, d := range f.Index() {
		row[0] = d.Format(csvDateLayout)
		for j, name := range cols {
			v, _ := f.Column(name)
			row[j+1] = formatFloat(v[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFrame parses the layout produced by WriteFrame. Empty cells become NaN.
func ReadFrame(r io.Reader) (*models.Frame, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return models.NewFrame(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 || header[0] != "Date" {
		return nil, fmt.Errorf("invalid header: first column must be Date")
	}
	names := header[1:]

	var (
		index []time.Time
		cols  = make([][]float64, len(names))
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		d, err := parseCSVDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		index = append(index, d)
		for j := range names {
			v := math.NaN()
			if cell := rec[j+1]; cell != "" {
				if v, err = strconv.ParseFloat(cell, 64); err != nil {
					return nil, fmt.Errorf("line %d column %s: %w", line, names[j], err)
				}
			}
			cols[j] = append(cols[j], v)
		}
	}

	f := models.NewFrame(index)
	for j, name := range names {
		if err := f.Set(name, cols[j]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// parseCSVDate accepts plain dates and the timestamp form some exporters write.
func parseCSVDate(s string) (time.Time, error) {
	for _, layout := range []string{csvDateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeFileAtomic writes through a temp file in the same directory, then renames it into place.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
