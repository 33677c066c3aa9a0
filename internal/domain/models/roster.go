package models

import (
	"fmt"
	"strings"
)

type InstrumentGroup string

const (
	GroupCommodityETF InstrumentGroup = "commodity_etf"
	GroupMaterials    InstrumentGroup = "materials"
	GroupAerospace    InstrumentGroup = "aerospace"
	GroupFutures      InstrumentGroup = "futures"
	GroupSupplier     InstrumentGroup = "supplier"
	GroupControl      InstrumentGroup = "control"
)

// Instrument maps a display name (the column key used everywhere downstream) to a market symbol.
type Instrument struct {
	Name   string          `yaml:"name" json:"name" validate:"required"`
	Symbol string          `yaml:"symbol" json:"symbol" validate:"required"`
	Group  InstrumentGroup `yaml:"group" json:"group" validate:"required,oneof=commodity_etf materials aerospace futures supplier control"`
	Tier   int             `yaml:"tier,omitempty" json:"tier,omitempty" validate:"omitempty,min=1,max=4"`
}

// ControlRoles names the roster entries that act as baselines.
type ControlRoles struct {
	Market      string `yaml:"market" json:"market" default:"SP500"`
	Sector      string `yaml:"sector" json:"sector" default:"Industrial_Sector"`
	Commodities string `yaml:"commodities" json:"commodities" default:"General_Commodities"`
	SmallCap    string `yaml:"small_cap" json:"small_cap" default:"Russell_2000"`
}

// NamedControl is a (role, column) pair.
type NamedControl struct {
	Role   string
	Column string
}

// Validation returns the four controls used by the significance test, in fixed order.
func (c ControlRoles) Validation() []NamedControl {
	return []NamedControl{
		{Role: "market", Column: c.Market},
		{Role: "sector", Column: c.Sector},
		{Role: "commodities", Column: c.Commodities},
		{Role: "small_cap", Column: c.SmallCap},
	}
}

// Eligibility selects the tickers that take part in pairwise correlation.
type Eligibility struct {
	Names   []string `yaml:"names" json:"names"`
	Tiers   []int    `yaml:"tiers" json:"tiers"`
	Markers []string `yaml:"markers" json:"markers"`
}

func DefaultEligibility() Eligibility {
	return Eligibility{
		Names:   []string{"Metals", "Materials"},
		Tiers:   []int{3},
		Markers: []string{"ETF", "Materials", "Aerospace"},
	}
}

// Roster is the instrument universe for one analysis. Treat it as immutable once built.
type Roster struct {
	Instruments []Instrument `yaml:"instruments" json:"instruments" validate:"dive"`
	Controls    ControlRoles `yaml:"controls" json:"controls"`
	Correlation Eligibility  `yaml:"correlation" json:"correlation"`
}

// DefaultRoster is the F-35 supply-chain basket.
func DefaultRoster() Roster {
	return Roster{
		Instruments: []Instrument{
			{Name: "Industrial_Metals", Symbol: "JJM", Group: GroupCommodityETF},
			{Name: "Base_Metals", Symbol: "DBB", Group: GroupCommodityETF},
			{Name: "Metals_and_Mining", Symbol: "XME", Group: GroupCommodityETF},
			{Name: "Materials", Symbol: "XLB", Group: GroupMaterials},
			{Name: "Basic_Materials", Symbol: "VAW", Group: GroupMaterials},
			{Name: "Aerospace", Symbol: "ITA", Group: GroupAerospace},
			{Name: "Defense", Symbol: "PPA", Group: GroupAerospace},
			{Name: "Spider_Defense", Symbol: "XAR", Group: GroupAerospace},
			{Name: "Aluminum", Symbol: "ALI=F", Group: GroupFutures},
			{Name: "Luna_Innovations", Symbol: "LUNA", Group: GroupSupplier, Tier: 3},
			{Name: "Lightpath_Technologies", Symbol: "LPTH", Group: GroupSupplier, Tier: 3},
			{Name: "Kale_Aero", Symbol: "KIPA.IS", Group: GroupSupplier, Tier: 3},
			{Name: "Materion_Corporation", Symbol: "MTRN", Group: GroupSupplier, Tier: 3},
			{Name: "Kitron_ASA", Symbol: "KIT.OL", Group: GroupSupplier, Tier: 3},
			{Name: "Ducommun_Labarge", Symbol: "DCO", Group: GroupSupplier, Tier: 3},
			{Name: "Carpenter_Technology", Symbol: "CRS", Group: GroupSupplier, Tier: 3},
			{Name: "Quickstep_Holdings", Symbol: "QHL.AX", Group: GroupSupplier, Tier: 3},
			{Name: "GKN_Aerospace", Symbol: "MRO.L", Group: GroupSupplier, Tier: 3},
			{Name: "Dupont", Symbol: "DD", Group: GroupSupplier, Tier: 3},
			{Name: "Hardide", Symbol: "HDD.L", Group: GroupSupplier, Tier: 3},
			{Name: "SP500", Symbol: "SPY", Group: GroupControl},
			{Name: "General_Commodities", Symbol: "DBC", Group: GroupControl},
			{Name: "Industrial_Sector", Symbol: "XLI", Group: GroupControl},
			{Name: "Russell_2000", Symbol: "IWM", Group: GroupControl},
		},
		Controls: ControlRoles{
			Market:      "SP500",
			Sector:      "Industrial_Sector",
			Commodities: "General_Commodities",
			SmallCap:    "Russell_2000",
		},
		Correlation: DefaultEligibility(),
	}
}

// Names lists display names in roster order.
func (r Roster) Names() []string {
	out := make([]string, len(r.Instruments))
	for i, in := range r.Instruments {
		out[i] = in.Name
	}
	return out
}

func (r Roster) Instrument(name string) (Instrument, bool) {
	for _, in := range r.Instruments {
		if in.Name == name {
			return in, true
		}
	}
	return Instrument{}, false
}

// Eligible reports whether a ticker takes part in pairwise correlation tracking.
func (r Roster) Eligible(name string) bool {
	for _, n := range r.Correlation.Names {
		if n == name {
			return true
		}
	}
	if in, ok := r.Instrument(name); ok && in.Tier > 0 {
		for _, t := range r.Correlation.Tiers {
			if in.Tier == t {
				return true
			}
		}
	}
	for _, m := range r.Correlation.Markers {
		if m != "" && strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// Validate checks name uniqueness and that every control role resolves to an instrument.
func (r Roster) Validate() error {
	seen := make(map[string]struct{}, len(r.Instruments))
	for _, in := range r.Instruments {
		if in.Name == "" || in.Symbol == "" {
			return fmt.Errorf("roster: instrument needs both name and symbol (%q/%q)", in.Name, in.Symbol)
		}
		if _, dup := seen[in.Name]; dup {
			return fmt.Errorf("roster: duplicate instrument name %q", in.Name)
		}
		seen[in.Name] = struct{}{}
	}
	for _, c := range r.Controls.Validation() {
		if c.Column == "" {
			return fmt.Errorf("roster: control %s is not set", c.Role)
		}
		if _, ok := seen[c.Column]; !ok {
			return fmt.Errorf("roster: control %s=%q is not an instrument", c.Role, c.Column)
		}
	}
	return nil
}

// WithSuppliers returns a copy extended by the registry's public suppliers of the given tier.
// Names already present, by display name or by symbol, are left untouched.
func (r Roster) WithSuppliers(suppliers []Supplier, tier int) Roster {
	out := r
	out.Instruments = append([]Instrument(nil), r.Instruments...)
	names := make(map[string]struct{}, len(out.Instruments))
	symbols := make(map[string]struct{}, len(out.Instruments))
	for _, in := range out.Instruments {
		names[in.Name] = struct{}{}
		symbols[in.Symbol] = struct{}{}
	}
	for _, s := range suppliers {
		if s.TierLevel != tier || !s.Public() {
			continue
		}
		name := s.ColumnName()
		if _, ok := names[name]; ok {
			continue
		}
		if _, ok := symbols[s.TickerSymbol]; ok {
			continue
		}
		out.Instruments = append(out.Instruments, Instrument{Name: name, Symbol: s.TickerSymbol, Group: GroupSupplier, Tier: tier})
		names[name] = struct{}{}
		symbols[s.TickerSymbol] = struct{}{}
	}
	return out
}
