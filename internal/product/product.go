package product

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Product lifecycle statuses. The engine only ever requests a transition to
// StatusMatured; everything else is owned by the product store.
const (
	StatusActive  = "active"
	StatusMatured = "matured"
)

// Date is a calendar date (no time-of-day component) serialized as
// YYYY-MM-DD in product files.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// MustDate is a test/fixture helper that panics on malformed input.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Time.IsZero()
}

// SameDay reports calendar-date equality, ignoring time-of-day and zone.
func (d Date) SameDay(t time.Time) bool {
	y1, m1, day1 := d.Date()
	y2, m2, day2 := t.Date()
	return y1 == y2 && m1 == m2 && day1 == day2
}

// UnmarshalYAML decodes a YYYY-MM-DD scalar.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML encodes the date as a YYYY-MM-DD scalar.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Underlying is a reference asset the product's performance is measured
// against. Strike is the reference level used for rebasing chart series.
type Underlying struct {
	Symbol string  `yaml:"symbol" json:"symbol"`
	Strike float64 `yaml:"strike" json:"strike"`
}

// Product is a structured-product definition: the payoff structure plus the
// dates and underlyings the structure is evaluated against.
type Product struct {
	ID               string            `yaml:"id" json:"id"`
	Name             string            `yaml:"name,omitempty" json:"name,omitempty"`
	Status           string            `yaml:"status,omitempty" json:"status,omitempty"`
	Currency         string            `yaml:"currency" json:"currency"`
	TradeDate        Date              `yaml:"trade_date" json:"trade_date"`
	Maturity         Date              `yaml:"maturity" json:"maturity"`
	FinalObservation Date              `yaml:"final_observation,omitempty" json:"final_observation,omitempty"`
	Underlyings      []Underlying      `yaml:"underlyings" json:"underlyings"`
	PayoffStructure  []PayoffComponent `yaml:"payoff_structure" json:"payoff_structure"`
}

// FinalObservationDate resolves the final observation date, bounded by
// maturity: absent or later-than-maturity observation dates collapse to the
// maturity date itself.
func (p *Product) FinalObservationDate() Date {
	if p.FinalObservation.IsZero() || p.FinalObservation.After(p.Maturity.Time) {
		return p.Maturity
	}
	return p.FinalObservation
}

// Load reads a product definition from a YAML file.
func Load(path string) (*Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read product file: %w", err)
	}
	var p Product
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse product file %s: %w", path, err)
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	// Authoring tools disagree on casing; normalize once at the boundary.
	for i := range p.PayoffStructure {
		c := &p.PayoffStructure[i]
		c.Type = ParseComponentType(string(c.Type))
		c.Column = ParseColumn(string(c.Column))
	}
	return &p, nil
}

// StatusNotifier receives fire-and-forget status-transition requests. The
// engine signals a transition to "matured" when an evaluation observes a
// matured market context for a product whose stored status differs; applying
// (or ignoring) the transition is the store's concern.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, productID, newStatus string) error
}
