package domain

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	TierFree    = "free"
	TierBasic   = "basic"
	TierPremium = "premium"
)

// Unlimited marks a tier ceiling with no bound.
const Unlimited = -1

type ChartKind string

const (
	ChartPie   ChartKind = "pie"
	ChartBar   ChartKind = "bar"
	ChartLine  ChartKind = "line"
	ChartTrend ChartKind = "trend"
)

// Limit is a tier ceiling. In YAML it is either an integer or "unlimited".
type Limit int

func (l Limit) Unlimited() bool { return l < 0 }

// Reached reports whether count has hit a finite ceiling.
func (l Limit) Reached(count int) bool { return !l.Unlimited() && count >= int(l) }

func (l Limit) String() string {
	if l.Unlimited() {
		return "unlimited"
	}
	return fmt.Sprintf("%d", int(l))
}

func (l *Limit) UnmarshalYAML(n *yaml.Node) error {
	if n.Value == "unlimited" {
		*l = Unlimited
		return nil
	}
	var v int
	if err := n.Decode(&v); err != nil {
		return fmt.Errorf("limit %q: %w", n.Value, err)
	}
	if v < 0 {
		return fmt.Errorf("limit %d: must not be negative", v)
	}
	*l = Limit(v)
	return nil
}

type Tier struct {
	Key             string      `yaml:"key"`
	Name            string      `yaml:"name"`
	Price           int64       `yaml:"price"`
	MaxTransactions Limit       `yaml:"max_transactions"`
	MaxCategories   Limit       `yaml:"max_categories"`
	ExportLimit     Limit       `yaml:"export_limit"`
	ChartTypes      []ChartKind `yaml:"chart_types"`
	Features        []string    `yaml:"features"`
}

func (t Tier) AllowsChart(k ChartKind) bool {
	for _, c := range t.ChartTypes {
		if c == k {
			return true
		}
	}
	return false
}

// Catalog carries the fixed category lists and the ordered tier table.
// Tiers are ordered from lowest to highest.
type Catalog struct {
	IncomeCategories  []string `yaml:"income_categories"`
	ExpenseCategories []string `yaml:"expense_categories"`
	Tiers             []Tier   `yaml:"tiers"`
}

//go:embed catalog.yaml
var defaultCatalog []byte

func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

func LoadCatalog(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(b)
}

func ParseCatalog(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.IncomeCategories) == 0 || len(c.ExpenseCategories) == 0 {
		return Catalog{}, fmt.Errorf("parse catalog: category lists must not be empty")
	}
	if len(c.Tiers) == 0 {
		return Catalog{}, fmt.Errorf("parse catalog: no tiers")
	}
	return c, nil
}

func (c Catalog) Categories(d Direction) []string {
	if d == Income {
		return c.IncomeCategories
	}
	return c.ExpenseCategories
}

// Tier resolves a tier by key, falling back to the lowest tier.
func (c Catalog) Tier(key string) Tier {
	for _, t := range c.Tiers {
		if t.Key == key {
			return t
		}
	}
	return c.Tiers[0]
}

func (c Catalog) HasTier(key string) bool {
	for _, t := range c.Tiers {
		if t.Key == key {
			return true
		}
	}
	return false
}

// Effective returns the tier that applies to s: an inactive subscription falls
// back to the lowest tier.
func (c Catalog) Effective(s Subscription) Tier {
	if !s.IsActive {
		return c.Tiers[0]
	}
	return c.Tier(s.Tier)
}

// Above returns the tiers ranked higher than key.
func (c Catalog) Above(key string) []Tier {
	for i, t := range c.Tiers {
		if t.Key == key {
			return c.Tiers[i+1:]
		}
	}
	return c.Tiers[1:]
}
