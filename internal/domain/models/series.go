package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// DateOnly strips the clock and location from t, leaving a naive trading date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Point is one dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

type pointJSON struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// MarshalJSON writes NaN and infinities as null.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{Date: p.Date.Format("2006-01-02"), Value: Nullable(p.Value)})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var raw pointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := time.Parse("2006-01-02", raw.Date)
	if err != nil {
		return fmt.Errorf("point date: %w", err)
	}
	p.Date = d
	p.Value = FromNullable(raw.Value)
	return nil
}

// Nullable maps undefined floats to nil for JSON encoding.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func FromNullable(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Series is an ordered run of points with strictly increasing dates.
type Series []Point

func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, p := range s {
		out[i] = p.Date
	}
	return out
}

// Lookup indexes the series by date.
func (s Series) Lookup() map[time.Time]float64 {
	m := make(map[time.Time]float64, len(s))
	for _, p := range s {
		m[p.Date] = p.Value
	}
	return m
}

// Max returns the largest defined value, or false if none is defined.
func (s Series) Max() (Point, bool) {
	best := Point{Value: math.Inf(-1)}
	found := false
	for _, p := range s {
		if math.IsNaN(p.Value) {
			continue
		}
		if !found || p.Value > best.Value {
			best, found = p, true
		}
	}
	return best, found
}

// Frame is a column table over a shared, ordered date index. Missing observations are NaN.
// Column order is insertion order; all iteration in the analytics follows it.
type Frame struct {
	index   []time.Time
	columns []string
	values  map[string][]float64
}

func NewFrame(index []time.Time) *Frame {
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return &Frame{index: idx, values: make(map[string][]float64)}
}

// Set adds or replaces a column. The slice length must match the index.
func (f *Frame) Set(name string, values []float64) error {
	if len(values) != len(f.index) {
		return fmt.Errorf("column %s: %d values for %d dates", name, len(values), len(f.index))
	}
	if _, ok := f.values[name]; !ok {
		f.columns = append(f.columns, name)
	}
	col := make([]float64, len(values))
	copy(col, values)
	f.values[name] = col
	return nil
}

// Index is the shared date index. Callers must not modify it.
func (f *Frame) Index() []time.Time {
	if f == nil {
		return nil
	}
	return f.index
}

func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.index)
}

func (f *Frame) Columns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

func (f *Frame) Has(name string) bool {
	if f == nil {
		return false
	}
	_, ok := f.values[name]
	return ok
}

// Column returns the column's values. Callers must not modify the slice.
func (f *Frame) Column(name string) ([]float64, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[name]
	return v, ok
}

// Empty reports whether the frame has no dates or no columns.
func (f *Frame) Empty() bool {
	return f == nil || len(f.index) == 0 || len(f.columns) == 0
}

// Series pairs a column with the index.
func (f *Frame) Series(name string) (Series, bool) {
	col, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	out := make(Series, len(col))
	for i, v := range col {
		out[i] = Point{Date: f.index[i], Value: v}
	}
	return out, true
}

// Position finds the row of date in the index.
func (f *Frame) Position(date time.Time) (int, bool) {
	if f == nil {
		return 0, false
	}
	i := sort.Search(len(f.index), func(i int) bool { return !f.index[i].Before(date) })
	if i < len(f.index) && f.index[i].Equal(date) {
		return i, true
	}
	return 0, false
}

// AlignSeries builds a Frame over the union of all series dates, columns in the given order.
// Names absent from data are skipped; dates missing for a column become NaN.
func AlignSeries(order []string, data map[string]Series) *Frame {
	seen := make(map[time.Time]struct{})
	for _, name := range order {
		for _, p := range data[name] {
			seen[DateOnly(p.Date)] = struct{}{}
		}
	}
	index := make([]time.Time, 0, len(seen))
	for d := range seen {
		index = append(index, d)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	f := NewFrame(index)
	pos := make(map[time.Time]int, len(index))
	for i, d := range index {
		pos[d] = i
	}
	for _, name := range order {
		s, ok := data[name]
		if !ok || f.Has(name) {
			continue
		}
		col := make([]float64, len(index))
		for i := range col {
			col[i] = math.NaN()
		}
		for _, p := range s {
			col[pos[DateOnly(p.Date)]] = p.Value
		}
		_ = f.Set(name, col)
	}
	return f
}
