package repository

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"ContractScan/internal/domain/models"
)

//go:embed seed/suppliers.csv
var seedSuppliers []byte

// SeedSuppliers returns the known F-35 supplier list shipped with the binary.
func SeedSuppliers() ([]models.Supplier, error) {
	return decodeSuppliers(bytes.NewReader(seedSuppliers))
}

// CSVSupplierStore keeps the registry in a single CSV file laid out as models.SupplierColumns.
type CSVSupplierStore struct {
	path string
}

func NewCSVSupplierStore(path string) *CSVSupplierStore {
	return &CSVSupplierStore{path: path}
}

func (s *CSVSupplierStore) Path() string { return s.path }

// Load returns an empty registry when the file does not exist yet.
func (s *CSVSupplierStore) Load(ctx context.Context) ([]models.Supplier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open supplier registry: %w", err)
	}
	defer f.Close()
	return decodeSuppliers(f)
}

func (s *CSVSupplierStore) Save(ctx context.Context, suppliers []models.Supplier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFileAtomic(s.path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(models.SupplierColumns); err != nil {
			return err
		}
		for _, sp := range suppliers {
			if err := cw.Write(sp.Record()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func decodeSuppliers(r io.Reader) ([]models.Supplier, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read supplier header: %w", err)
	}

	var out []models.Supplier
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("supplier line %d: %w", line, err)
		}
		var sp models.Supplier
		for i, col := range header {
			if i >= len(rec) {
				break
			}
			if err := sp.SetField(col, rec[i]); err != nil {
				return nil, fmt.Errorf("supplier line %d: %w", line, err)
			}
		}
		out = append(out, sp)
	}
}
