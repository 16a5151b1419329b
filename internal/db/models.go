package db

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

type StockItem struct {
	Code             int64               `json:"code"`
	Description      string              `json:"description"`
	EntryMonth       pgtype.Text         `json:"entry_month"`
	EntryDay         pgtype.Int4         `json:"entry_day"`
	EnteredQty       int64               `json:"entered_qty"`
	EnteredUnit      pgtype.Text         `json:"entered_unit"`
	EnteredTotalCost decimal.Decimal     `json:"entered_total_cost"`
	UnitCost         decimal.Decimal     `json:"unit_cost"`
	OnHandQty        int64               `json:"on_hand_qty"`
	StockUnit        pgtype.Text         `json:"stock_unit"`
	SalePrice        decimal.NullDecimal `json:"sale_price"`
	Supplier         pgtype.Text         `json:"supplier"`
	Invoice          pgtype.Text         `json:"invoice"`
	DueDate          pgtype.Date         `json:"due_date"`
	CreatedAt        pgtype.Timestamptz  `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz  `json:"updated_at"`
}

type Order struct {
	ID              int64              `json:"id"`
	Description     string             `json:"description"`
	Qty             int64              `json:"qty"`
	Responsible     string             `json:"responsible"`
	Store           string             `json:"store"`
	Locality        string             `json:"locality"`
	Day             int32              `json:"day"`
	Month           string             `json:"month"`
	UnitPrice       decimal.Decimal    `json:"unit_price"`
	TotalPrice      decimal.Decimal    `json:"total_price"`
	UnitProfit      decimal.Decimal    `json:"unit_profit"`
	TotalProfit     decimal.Decimal    `json:"total_profit"`
	Margin          string             `json:"margin"`
	DiscountApplied bool               `json:"discount_applied"`
	StockCode       pgtype.Int8        `json:"stock_code"`
	CreatedAt       pgtype.Timestamptz `json:"created_at"`
	UpdatedAt       pgtype.Timestamptz `json:"updated_at"`
}
