package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Profit holds the profitability of one order line.
type Profit struct {
	UnitProfit  decimal.Decimal
	TotalProfit decimal.Decimal
	Margin      string
}

// Profitability derives profit and margin from the final unit price.
func Profitability(unitPrice, unitCost decimal.Decimal, qty int64) Profit {
	unitProfit := unitPrice.Sub(unitCost).Round(4)
	return Profit{
		UnitProfit:  unitProfit,
		TotalProfit: unitProfit.Mul(decimal.NewFromInt(qty)).Round(2),
		Margin:      Margin(unitProfit, unitPrice),
	}
}

// Margin renders unitProfit/price as a percentage with two decimals and a
// trailing "%". A non-positive price yields "0%".
func Margin(unitProfit, price decimal.Decimal) string {
	if !price.IsPositive() {
		return "0%"
	}
	return unitProfit.Div(price).Mul(hundred).StringFixed(2) + "%"
}
