package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuoteFixedPrice(t *testing.T) {
	q := DefaultRules().Quote(Request{
		Description: "Açaí 500ml",
		Quantity:    2,
		Responsible: "Rodrigo",
		Store:       "Barra Açaí",
		Item:        &Item{UnitCost: d("8"), SalePrice: d("140")},
	})
	require.Equal(t, "122.50", q.UnitPrice.StringFixed(2))
	require.Equal(t, "245.00", q.TotalPrice.StringFixed(2))
	require.True(t, q.DiscountApplied)
	require.Equal(t, RuleFixedPrice, q.Rule)
}

func TestQuoteFixedPriceWithoutStockMatch(t *testing.T) {
	q := DefaultRules().Quote(Request{
		Description: "  AÇAÍ tradicional ",
		Quantity:    1,
		Responsible: "Rodrigo",
		Store:       "Barra Açaí",
	})
	require.Equal(t, "122.50", q.UnitPrice.StringFixed(2))
	require.True(t, q.DiscountApplied)
}

func TestQuotePackagingIsNeverDiscounted(t *testing.T) {
	for _, desc := range []string{"Caixa de Papelão", "caixa papelão grande", "CAIXA PAPELON"} {
		q := DefaultRules().Quote(Request{
			Description: desc,
			Quantity:    5,
			Responsible: "Rodrigo",
			Store:       "Barra Açaí",
			Item:        &Item{UnitCost: d("1"), SalePrice: d("3")},
		})
		if !q.UnitPrice.Equal(d("3")) || q.DiscountApplied {
			t.Fatalf("%q: expected undiscounted 3.00, got %s (discount=%v)", desc, q.UnitPrice, q.DiscountApplied)
		}
		if q.Rule != RuleNoDiscount {
			t.Fatalf("%q: expected no_discount rule, got %s", desc, q.Rule)
		}
	}
}

func TestQuoteLoyaltySplitsMargin(t *testing.T) {
	for _, pair := range DefaultRules().Loyalty {
		q := DefaultRules().Quote(Request{
			Description: "Granola 1kg",
			Quantity:    3,
			Responsible: pair.Responsible,
			Store:       pair.Store,
			Item:        &Item{UnitCost: d("10"), SalePrice: d("20")},
		})
		require.Equal(t, "15.00", q.UnitPrice.StringFixed(2), pair)
		require.Equal(t, "45.00", q.TotalPrice.StringFixed(2), pair)
		require.True(t, q.DiscountApplied)
		require.Equal(t, RuleLoyalty, q.Rule)
	}
}

func TestQuoteLoyaltyNeedsStockMatch(t *testing.T) {
	q := DefaultRules().Quote(Request{
		Description: "Granola 1kg",
		Quantity:    1,
		Responsible: "Ericsson",
		Store:       "Açaí da Ponte",
	})
	require.True(t, q.UnitPrice.IsZero())
	require.False(t, q.DiscountApplied)
	require.Equal(t, RuleDefault, q.Rule)
}

func TestQuoteDefaultUsesSalePrice(t *testing.T) {
	q := DefaultRules().Quote(Request{
		Description: "Granola 1kg",
		Quantity:    4,
		Responsible: "Rodrigo",
		Store:       "Outra Loja",
		Item:        &Item{UnitCost: d("10"), SalePrice: d("19.999")},
	})
	require.Equal(t, "20.00", q.UnitPrice.StringFixed(2))
	require.Equal(t, "80.00", q.TotalPrice.StringFixed(2))
	require.False(t, q.DiscountApplied)
}

func TestQuoteFixedRuleNeedsExactPair(t *testing.T) {
	q := DefaultRules().Quote(Request{
		Description: "Açaí 1L",
		Quantity:    1,
		Responsible: "Ericsson",
		Store:       "Barra Açaí",
		Item:        &Item{UnitCost: d("10"), SalePrice: d("30")},
	})
	require.Equal(t, "30.00", q.UnitPrice.StringFixed(2))
	require.False(t, q.DiscountApplied)
}
