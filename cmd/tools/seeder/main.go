package main

import (
	"database/sql"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vinicius77777/acai-do-max/internal/obs"
	"github.com/vinicius77777/acai-do-max/internal/stock"
)

type seedItem struct {
	Description string
	Qty         int64
	Unit        string
	TotalCost   string
	SalePrice   string
	Supplier    string
}

var demoStock = []seedItem{
	{"Açaí 300ml", 120, "un", "540.00", "12.00", "Polpa Norte"},
	{"Açaí 500ml", 200, "un", "1400.00", "18.00", "Polpa Norte"},
	{"Açaí 1L", 80, "un", "960.00", "32.00", "Polpa Norte"},
	{"Granola 1kg", 30, "pct", "390.00", "", "Cereais Bom Dia"},
	{"Leite Condensado", 48, "lata", "336.00", "", "Laticínios Serra"},
	{"Copo 300ml", 1000, "un", "150.00", "", "Embalagens Sul"},
	{"Copo 500ml", 1000, "un", "190.00", "", "Embalagens Sul"},
	{"Colher", 2000, "un", "60.00", "", "Embalagens Sul"},
	{"Tampa", 2000, "un", "80.00", "", "Embalagens Sul"},
	{"Caixa de Papelão", 50, "un", "125.00", "", "Embalagens Sul"},
}

func main() {
	logger := obs.NewLogger("console", "info")

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	seeded := seedStock(db, logger, time.Now())
	logger.Info().Int("items", seeded).Msg("seeding completed")
}

// seedStock inserts the demo list, leaving descriptions that already exist untouched.
func seedStock(db *sql.DB, logger zerolog.Logger, now time.Time) int {
	month := now.Format("01")
	seeded := 0
	for _, it := range demoStock {
		total := decimal.RequireFromString(it.TotalCost)
		var sale any
		if it.SalePrice != "" {
			sale = decimal.RequireFromString(it.SalePrice)
		}
		res, err := db.Exec(`
			INSERT INTO stock_items (
				description, entry_month, entry_day, entered_qty, entered_unit,
				entered_total_cost, unit_cost, on_hand_qty, stock_unit, sale_price, supplier
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $4, $5, $8, $9)
			ON CONFLICT (description) DO NOTHING;
		`, it.Description, month, now.Day(), it.Qty, it.Unit,
			total, stock.UnitCost(total, it.Qty), sale, it.Supplier)
		if err != nil {
			logger.Error().Err(err).Str("description", it.Description).Msg("seed stock item")
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			seeded++
		}
	}
	return seeded
}
