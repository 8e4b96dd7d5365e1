package params

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Variant is one audience experiment layered on a base ad-set payload.
type Variant struct {
	Label            string   `yaml:"label"`
	NameSuffix       string   `yaml:"name_suffix"`
	BudgetMultiplier float64  `yaml:"budget_multiplier"`
	AgeMin           int      `yaml:"age_min"`
	AgeMax           int      `yaml:"age_max"`
	ClearInterests   bool     `yaml:"clear_interests"`
	AddInterests     []string `yaml:"add_interests"`
}

type Catalog struct {
	Variants []Variant `yaml:"variants"`
}

func DefaultCatalog() Catalog {
	return Catalog{Variants: []Variant{
		{Label: "broad", NameSuffix: "Broad", BudgetMultiplier: 1, AgeMin: 18, AgeMax: 65, ClearInterests: true},
		{Label: "high-intent", NameSuffix: "High Intent", BudgetMultiplier: 1.25},
		{Label: "control", NameSuffix: "Control", BudgetMultiplier: 0.5},
	}}
}

// LoadCatalog parses a YAML variant catalog. An empty document yields the
// default catalog.
func LoadCatalog(raw []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("parse variant catalog: %w", err)
	}
	if len(catalog.Variants) == 0 {
		return DefaultCatalog(), nil
	}
	seen := make(map[string]struct{}, len(catalog.Variants))
	for i, variant := range catalog.Variants {
		label := strings.TrimSpace(variant.Label)
		if label == "" {
			return Catalog{}, fmt.Errorf("variant %d has no label", i)
		}
		if _, dup := seen[label]; dup {
			return Catalog{}, fmt.Errorf("variant label %q is duplicated", label)
		}
		seen[label] = struct{}{}
		if variant.BudgetMultiplier < 0 {
			return Catalog{}, fmt.Errorf("variant %q has a negative budget multiplier", label)
		}
	}
	return catalog, nil
}

func (c Catalog) Labels() []string {
	labels := make([]string, 0, len(c.Variants))
	for _, variant := range c.Variants {
		labels = append(labels, variant.Label)
	}
	return labels
}

// Lookup returns the catalog entry for label; unknown labels get a neutral
// variant that only renames.
func (c Catalog) Lookup(label string) Variant {
	label = strings.TrimSpace(label)
	for _, variant := range c.Variants {
		if strings.EqualFold(variant.Label, label) {
			return variant
		}
	}
	return Variant{Label: label, NameSuffix: label, BudgetMultiplier: 1}
}

// Apply layers the variant deltas onto a copy of base.
func (v Variant) Apply(base Payload) Payload {
	out := Clone(base)
	if suffix := strings.TrimSpace(v.NameSuffix); suffix != "" {
		if name, ok := out["name"].(string); ok {
			out["name"] = name + " - " + suffix
		}
	}
	if v.BudgetMultiplier > 0 && v.BudgetMultiplier != 1 {
		for _, key := range []string{"daily_budget", "lifetime_budget"} {
			if budget, ok := out[key].(int64); ok {
				out[key] = int64(math.Round(float64(budget) * v.BudgetMultiplier))
			}
		}
	}

	targeting, _ := out["targeting"].(Payload)
	if targeting == nil {
		targeting = Payload{}
	}
	if v.AgeMin > 0 {
		targeting["age_min"] = v.AgeMin
	}
	if v.AgeMax > 0 {
		targeting["age_max"] = v.AgeMax
	}
	if v.ClearInterests {
		delete(targeting, "interests")
	}
	if len(v.AddInterests) > 0 {
		existing, _ := targeting["interests"].([]Payload)
		for _, interest := range v.AddInterests {
			existing = append(existing, Payload{"id": interest})
		}
		targeting["interests"] = existing
	}
	out["targeting"] = targeting
	return Strip(out)
}
