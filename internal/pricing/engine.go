package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Rule names the branch of the engine that produced a price.
type Rule string

const (
	RuleDefault    Rule = "default"
	RuleFixedPrice Rule = "fixed_price"
	RuleNoDiscount Rule = "no_discount"
	RuleLoyalty    Rule = "loyalty"
)

// Item carries the stock figures the engine needs. A nil *Item means the
// description matched nothing in stock.
type Item struct {
	UnitCost  decimal.Decimal
	SalePrice decimal.Decimal
}

// Pair is a (responsible, store) combination.
type Pair struct {
	Responsible string
	Store       string
}

// FixedPrice pins the unit price for a pair when the description contains Keyword.
type FixedPrice struct {
	Pair
	Keyword string
	Price   decimal.Decimal
}

// Rules is the discount table. Rules are evaluated in a fixed order and the
// first one that matches wins.
type Rules struct {
	Fixed        FixedPrice
	NoDiscount   []string
	Loyalty      []Pair
	LoyaltyShare decimal.Decimal
}

// DefaultRules returns the table used in production.
func DefaultRules() Rules {
	return Rules{
		Fixed: FixedPrice{
			Pair:    Pair{Responsible: "Rodrigo", Store: "Barra Açaí"},
			Keyword: "aça",
			Price:   decimal.RequireFromString("122.50"),
		},
		NoDiscount: []string{"caixa de papelão", "caixa papelão", "caixa papelon"},
		Loyalty: []Pair{
			{Responsible: "Rodrigo", Store: "Barra Açaí"},
			{Responsible: "Ericsson", Store: "Açaí da Ponte"},
		},
		LoyaltyShare: decimal.RequireFromString("0.5"),
	}
}

// Request is a single pricing question.
type Request struct {
	Description string
	Quantity    int64
	Responsible string
	Store       string
	Item        *Item
}

// Quote is the engine's answer.
type Quote struct {
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	UnitCost        decimal.Decimal `json:"-"`
	DiscountApplied bool            `json:"discount_applied"`
	Rule            Rule            `json:"rule"`
}

// Quote prices req. It never touches storage.
func (r Rules) Quote(req Request) Quote {
	var cost, base decimal.Decimal
	if req.Item != nil {
		cost = req.Item.UnitCost
		base = req.Item.SalePrice
	}
	desc := strings.ToLower(strings.TrimSpace(req.Description))
	pair := Pair{Responsible: req.Responsible, Store: req.Store}

	q := Quote{UnitPrice: base, UnitCost: cost, Rule: RuleDefault}
	switch {
	case r.Fixed.Keyword != "" && pair == r.Fixed.Pair && strings.Contains(desc, strings.ToLower(r.Fixed.Keyword)):
		q.UnitPrice = r.Fixed.Price
		q.DiscountApplied = true
		q.Rule = RuleFixedPrice
	case containsAny(desc, r.NoDiscount):
		q.Rule = RuleNoDiscount
	case req.Item != nil && r.isLoyal(pair):
		q.UnitPrice = cost.Add(r.LoyaltyShare.Mul(base.Sub(cost)))
		q.DiscountApplied = true
		q.Rule = RuleLoyalty
	}

	q.UnitPrice = q.UnitPrice.Round(2)
	q.TotalPrice = q.UnitPrice.Mul(decimal.NewFromInt(req.Quantity)).Round(2)
	return q
}

func (r Rules) isLoyal(p Pair) bool {
	for _, candidate := range r.Loyalty {
		if candidate == p {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
