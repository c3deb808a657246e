package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/analytics"
	"gopkg.in/yaml.v3"
)

// Rules holds the tunable analysis and parsing rules read from RULES_FILE.
type Rules struct {
	// RideVendors match against description or category.
	RideVendors []string `yaml:"ride_vendors"`
	// RideCategories match against category only.
	RideCategories []string `yaml:"ride_categories"`
	// CurrencyPrefix is stripped from CSV values before parsing.
	CurrencyPrefix string `yaml:"currency_prefix"`
	// DashboardWindow is how many recent periods the dashboard shows by default.
	DashboardWindow int `yaml:"dashboard_window"`
	// TopExpenses is the default size of the top expenses list.
	TopExpenses int `yaml:"top_expenses"`

	// CardPayments identify credit card bill payments, kept out of spending totals.
	CardPayments []analytics.CardPayment `yaml:"card_payments"`
	// TransportCategories select the rows broken down by provider.
	TransportCategories []string `yaml:"transport_categories"`
	// TransportProviders name transport providers by description keyword; first match wins.
	TransportProviders []analytics.KeywordGroup `yaml:"transport_providers"`
	// Subscriptions name recurring charges by description keyword.
	Subscriptions []analytics.KeywordGroup `yaml:"subscriptions"`
}

// DefaultRules returns the rules used when no file is configured.
func DefaultRules() Rules {
	breakdown := analytics.DefaultBreakdownRules()
	return Rules{
		RideVendors:         []string{"uber"},
		RideCategories:      []string{"ride", "transport"},
		CurrencyPrefix:      "R$",
		DashboardWindow:     4,
		TopExpenses:         10,
		CardPayments:        breakdown.CardPayments,
		TransportCategories: breakdown.TransportCategories,
		TransportProviders:  breakdown.TransportProviders,
		Subscriptions:       breakdown.Subscriptions,
	}
}

// RideRules returns the ride matching rules.
func (r Rules) RideRules() analytics.RideRules {
	return analytics.RideRules{Vendors: r.RideVendors, Categories: r.RideCategories}
}

// BreakdownRules returns the spending breakdown rules.
func (r Rules) BreakdownRules() analytics.BreakdownRules {
	return analytics.BreakdownRules{
		CardPayments:        r.CardPayments,
		TransportCategories: r.TransportCategories,
		TransportProviders:  r.TransportProviders,
		Subscriptions:       r.Subscriptions,
	}
}

// LoadRules reads a YAML rules file. Keys missing from the file keep their defaults.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("reading rules file: %w", err)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parsing rules file: %w", err)
	}

	rules.RideVendors = lowerAll(rules.RideVendors)
	rules.RideCategories = lowerAll(rules.RideCategories)
	rules.TransportCategories = lowerAll(rules.TransportCategories)
	for _, groups := range [][]analytics.KeywordGroup{rules.TransportProviders, rules.Subscriptions} {
		for i := range groups {
			groups[i].Name = strings.TrimSpace(groups[i].Name)
			groups[i].Keywords = lowerAll(groups[i].Keywords)
		}
	}

	return rules, nil
}

// Validate checks the rules for values the analysis cannot work with.
func (r Rules) Validate() error {
	var problems []string
	if len(r.RideVendors) == 0 && len(r.RideCategories) == 0 {
		problems = append(problems, "rules: at least one ride vendor or category keyword is required")
	}
	for _, kw := range append(append([]string{}, r.RideVendors...), r.RideCategories...) {
		if strings.TrimSpace(kw) == "" {
			problems = append(problems, "rules: ride keywords cannot be blank")
			break
		}
	}
	if r.DashboardWindow < 1 {
		problems = append(problems, fmt.Sprintf("rules: invalid dashboard window %d: must be at least 1", r.DashboardWindow))
	}
	if r.TopExpenses < 1 {
		problems = append(problems, fmt.Sprintf("rules: invalid top expenses size %d: must be at least 1", r.TopExpenses))
	}
	for i, c := range r.CardPayments {
		if strings.TrimSpace(c.Description) == "" {
			problems = append(problems, fmt.Sprintf("rules: card payment %d has no description", i+1))
		}
	}
	problems = append(problems, checkGroups("transport provider", r.TransportProviders)...)
	problems = append(problems, checkGroups("subscription", r.Subscriptions)...)
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "\n- "))
	}
	return nil
}

func checkGroups(what string, groups []analytics.KeywordGroup) []string {
	var problems []string
	seen := make(map[string]bool)
	for i, g := range groups {
		switch {
		case g.Name == "":
			problems = append(problems, fmt.Sprintf("rules: %s %d has no name", what, i+1))
		case seen[g.Name]:
			problems = append(problems, fmt.Sprintf("rules: duplicate %s %q", what, g.Name))
		}
		seen[g.Name] = true
		if len(g.Keywords) == 0 {
			problems = append(problems, fmt.Sprintf("rules: %s %q has no keywords", what, g.Name))
		}
		for _, kw := range g.Keywords {
			if strings.TrimSpace(kw) == "" {
				problems = append(problems, fmt.Sprintf("rules: %s %q has a blank keyword", what, g.Name))
				break
			}
		}
	}
	return problems
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
