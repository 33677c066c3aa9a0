package models

// MarketData is the aligned price and volume tables for one collection window.
type MarketData struct {
	Window  DateRange
	Prices  *Frame
	Volumes *Frame
	// Units records per-ticker collection outcomes.
	Units []UnitResult
}

// Empty reports whether no ticker produced any observation.
func (m *MarketData) Empty() bool {
	return m == nil || (m.Prices.Empty() && m.Volumes.Empty())
}
