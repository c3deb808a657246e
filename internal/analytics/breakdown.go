package analytics

import (
	"sort"
	"strings"

	"github.com/dvloznov/spending-dashboard/internal/domain"
)

// OtherProvider collects transport rows no provider keyword claims.
const OtherProvider = "Other"

// CardPayment identifies the row that pays off a credit card bill.
// Both fields compare case-insensitively against the whole trimmed value;
// an empty Category matches any category.
type CardPayment struct {
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`
}

// Matches reports whether tx is a card payment.
func (c CardPayment) Matches(tx domain.Transaction) bool {
	if !strings.EqualFold(strings.TrimSpace(tx.Description), strings.TrimSpace(c.Description)) {
		return false
	}
	return c.Category == "" || strings.EqualFold(strings.TrimSpace(tx.Category), strings.TrimSpace(c.Category))
}

// KeywordGroup names a set of description keywords, matched as
// case-insensitive substrings.
type KeywordGroup struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

func (g KeywordGroup) matches(desc string) bool {
	for _, kw := range g.Keywords {
		if kw != "" && strings.Contains(desc, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// BreakdownRules configures Breakdown.
type BreakdownRules struct {
	CardPayments []CardPayment
	// TransportCategories select transport rows by exact, case-insensitive category.
	TransportCategories []string
	// TransportProviders are tried in order; the first match names the provider.
	TransportProviders []KeywordGroup
	// Subscriptions are tried in order; a row counts towards one subscription at most.
	Subscriptions []KeywordGroup
}

// DefaultBreakdownRules treats "PAGAMENTO ON LINE" under OUTROS as a card
// payment and splits transport into Uber, transit top-ups and fuel.
// No subscriptions are tracked by default.
func DefaultBreakdownRules() BreakdownRules {
	return BreakdownRules{
		CardPayments:        []CardPayment{{Description: "PAGAMENTO ON LINE", Category: "OUTROS"}},
		TransportCategories: []string{"transporte", "transport"},
		TransportProviders: []KeywordGroup{
			{Name: "Uber", Keywords: []string{"uber"}},
			{Name: "Public Transport", Keywords: []string{"recargapay"}},
			{Name: "Gas", Keywords: []string{"bristol"}},
		},
	}
}

func (r BreakdownRules) isCardPayment(tx domain.Transaction) bool {
	for _, c := range r.CardPayments {
		if c.Matches(tx) {
			return true
		}
	}
	return false
}

func (r BreakdownRules) isTransport(tx domain.Transaction) bool {
	cat := strings.TrimSpace(tx.Category)
	for _, c := range r.TransportCategories {
		if c != "" && strings.EqualFold(cat, strings.TrimSpace(c)) {
			return true
		}
	}
	return false
}

// NamedAmount is one slice of a breakdown.
type NamedAmount struct {
	Name       string  `json:"name"`
	Amount     Amount  `json:"amount"`
	Count      int     `json:"count"`
	Percentage Percent `json:"percentage"`
}

// SpendingBreakdown separates card bill payments from spending and splits
// the remaining spending by category, transport provider and subscription.
type SpendingBreakdown struct {
	Periods          []domain.Period `json:"periods"`
	HasData          bool            `json:"has_data"`
	Message          string          `json:"message,omitempty"`
	TotalSpent       Amount          `json:"total_spent"`
	CardPayments     Amount          `json:"card_payments"`
	CardPaymentCount int             `json:"card_payment_count"`
	Categories       []CategoryShare `json:"categories"`
	TopCategory      *CategoryShare  `json:"top_category,omitempty"`
	TopExpense       *Extreme        `json:"top_expense,omitempty"`

	// Transport percentages are shares of TransportTotal.
	TransportTotal Amount        `json:"transport_total"`
	Transport      []NamedAmount `json:"transport"`

	// Subscription percentages are shares of TotalSpent.
	SubscriptionTotal Amount        `json:"subscription_total"`
	SubscriptionShare Percent       `json:"subscription_share"`
	Subscriptions     []NamedAmount `json:"subscriptions"`
}

// Breakdown computes the spending breakdown of the selected periods.
// Card payments count towards CardPayments only.
func Breakdown(data domain.TransactionsByPeriod, selection []domain.Period, rules BreakdownRules) SpendingBreakdown {
	periods := NormalizeSelection(selection)
	b := SpendingBreakdown{
		Periods:       periods,
		Categories:    []CategoryShare{},
		Transport:     []NamedAmount{},
		Subscriptions: []NamedAmount{},
	}

	txs := data.Select(periods)
	if len(txs) == 0 {
		b.Message = NoDataMessage
		return b
	}
	b.HasData = true

	var (
		spending  []domain.Transaction
		spent     float64
		card      float64
		transport = make(map[string]*NamedAmount)
		subs      = make(map[string]*NamedAmount)
	)
	for _, tx := range txs {
		if rules.isCardPayment(tx) {
			card += tx.Value
			b.CardPaymentCount++
			continue
		}
		spending = append(spending, tx)
		spent += tx.Value

		desc := strings.ToLower(tx.Description)
		if rules.isTransport(tx) {
			addNamed(transport, providerOf(rules.TransportProviders, desc), tx.Value)
		}
		for _, g := range rules.Subscriptions {
			if g.matches(desc) {
				addNamed(subs, g.Name, tx.Value)
				break
			}
		}
	}

	b.TotalSpent = Amount(spent)
	b.CardPayments = Amount(card)
	b.Categories = rankCategories(CategoryTotals(spending), spent, 0)
	if len(b.Categories) > 0 {
		top := b.Categories[0]
		b.TopCategory = &top
	}
	if top := TopExpenses(spending, 1); len(top) == 1 {
		b.TopExpense = extremeOf(top[0])
	}

	transportTotal := sumNamed(transport)
	b.TransportTotal = Amount(transportTotal)
	b.Transport = rankNamed(transport, transportTotal)

	subTotal := sumNamed(subs)
	b.SubscriptionTotal = Amount(subTotal)
	b.SubscriptionShare = percentOf(subTotal, spent)
	b.Subscriptions = rankNamed(subs, spent)

	return b
}

func providerOf(groups []KeywordGroup, desc string) string {
	for _, g := range groups {
		if g.matches(desc) {
			return g.Name
		}
	}
	return OtherProvider
}

func addNamed(m map[string]*NamedAmount, name string, value float64) {
	n, ok := m[name]
	if !ok {
		n = &NamedAmount{Name: name}
		m[name] = n
	}
	n.Amount += Amount(value)
	n.Count++
}

func sumNamed(m map[string]*NamedAmount) float64 {
	var total float64
	for _, n := range m {
		total += float64(n.Amount)
	}
	return total
}

// rankNamed orders entries by amount descending, then by name, and sets each
// entry's share of whole.
func rankNamed(m map[string]*NamedAmount, whole float64) []NamedAmount {
	out := make([]NamedAmount, 0, len(m))
	for _, n := range m {
		entry := *n
		entry.Percentage = percentOf(float64(entry.Amount), whole)
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}
