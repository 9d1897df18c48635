package services

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"freedash/internal/models"
)

// TypeRule maps a category name to a transaction type.
type TypeRule struct {
	Category string                 `yaml:"category"`
	Type     models.TransactionType `yaml:"type"`
}

// TypeRules derives a transaction type from an aggregator category list.
// Rules are evaluated in order; the first rule whose category appears in the
// list wins, otherwise Fallback applies.
type TypeRules struct {
	Rules    []TypeRule             `yaml:"rules"`
	Fallback models.TransactionType `yaml:"fallback"`
}

// DefaultTypeRules treats payroll and interest as income and everything else
// as an expense. There is no transfer rule.
func DefaultTypeRules() *TypeRules {
	return &TypeRules{
		Rules: []TypeRule{
			{Category: "Payroll", Type: models.TransactionTypeIncome},
			{Category: "Interest", Type: models.TransactionTypeIncome},
		},
		Fallback: models.TransactionTypeExpense,
	}
}

// LoadTypeRules reads a rule table from a YAML file:
//
//	rules:
//	  - category: Payroll
//	    type: income
//	fallback: expense
func LoadTypeRules(path string) (*TypeRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules TypeRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	if rules.Fallback == "" {
		rules.Fallback = models.TransactionTypeExpense
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return &rules, nil
}

// Validate checks every rule names a category and a known type.
func (r *TypeRules) Validate() error {
	for i, rule := range r.Rules {
		if rule.Category == "" {
			return fmt.Errorf("rule %d: category is required", i)
		}
		if !rule.Type.Valid() {
			return fmt.Errorf("rule %d: unknown type %q", i, rule.Type)
		}
	}
	if !r.Fallback.Valid() {
		return fmt.Errorf("unknown fallback type %q", r.Fallback)
	}
	return nil
}

// Derive returns the type for a category list.
func (r *TypeRules) Derive(categories []string) models.TransactionType {
	for _, rule := range r.Rules {
		if slices.Contains(categories, rule.Category) {
			return rule.Type
		}
	}
	return r.Fallback
}
