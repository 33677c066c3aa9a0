package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SupplierColumns is the registry's on-disk column layout.
var SupplierColumns = []string{
	"Company_Name",
	"Ticker_Symbol",
	"Tier_Level",
	"Location",
	"Component_Type",
	"Primary_Customer",
	"Source",
	"Additional_Notes",
}

// Supplier is one supply-chain registry record.
type Supplier struct {
	CompanyName     string `json:"company_name" validate:"required"`
	TickerSymbol    string `json:"ticker_symbol"`
	TierLevel       int    `json:"tier_level" validate:"oneof=1 2 3 4"`
	Location        string `json:"location"`
	ComponentType   string `json:"component_type"`
	PrimaryCustomer string `json:"primary_customer"`
	Source          string `json:"source"`
	AdditionalNotes string `json:"additional_notes,omitempty"`
}

// Public reports whether the company has a listed ticker.
func (s Supplier) Public() bool {
	t := strings.TrimSpace(s.TickerSymbol)
	return t != "" && !strings.EqualFold(t, "N/A") && !strings.EqualFold(t, "NA")
}

// ColumnName derives a column-safe display name from the company name.
func (s Supplier) ColumnName() string {
	r := strings.NewReplacer(" ", "_", "&", "and", ".", "", ",", "", "(", "", ")", "", "/", "_")
	return r.Replace(strings.TrimSpace(s.CompanyName))
}

func (s Supplier) Record() []string {
	return []string{
		s.CompanyName,
		s.TickerSymbol,
		strconv.Itoa(s.TierLevel),
		s.Location,
		s.ComponentType,
		s.PrimaryCustomer,
		s.Source,
		s.AdditionalNotes,
	}
}

// SupplierFromRecord parses a row laid out as SupplierColumns.
func SupplierFromRecord(rec []string) (Supplier, error) {
	if len(rec) < len(SupplierColumns)-1 {
		return Supplier{}, fmt.Errorf("supplier record: want %d fields, got %d", len(SupplierColumns), len(rec))
	}
	var s Supplier
	for i, col := range SupplierColumns {
		if i >= len(rec) {
			break
		}
		if err := s.SetField(col, rec[i]); err != nil {
			return Supplier{}, err
		}
	}
	return s, nil
}

// SetField assigns a value by registry column name.
func (s *Supplier) SetField(column, value string) error {
	switch column {
	case "Company_Name":
		s.CompanyName = value
	case "Ticker_Symbol":
		s.TickerSymbol = value
	case "Tier_Level":
		v := strings.TrimSpace(value)
		if strings.HasSuffix(v, ".0") {
			v = strings.TrimSuffix(v, ".0")
		}
		tier, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("tier %q: %w", value, err)
		}
		s.TierLevel = tier
	case "Location":
		s.Location = value
	case "Component_Type":
		s.ComponentType = value
	case "Primary_Customer":
		s.PrimaryCustomer = value
	case "Source":
		s.Source = value
	case "Additional_Notes":
		s.AdditionalNotes = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSupplierField, column)
	}
	return nil
}
