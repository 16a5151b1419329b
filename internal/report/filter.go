package report

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vinicius77777/acai-do-max/internal/common"
	"github.com/vinicius77777/acai-do-max/internal/db"
)

// Mode selects the bucket size of the profit series.
type Mode string

const (
	ModeDay   Mode = "day"
	ModeMonth Mode = "month"
	ModeYear  Mode = "year"
)

// Filter narrows the orders a report covers. The zero value matches everything.
type Filter struct {
	Text      string `json:"text,omitempty"`
	Month     string `json:"month,omitempty"`
	Fortnight int    `json:"fortnight,omitempty"`
	Date      string `json:"date,omitempty"`
	From      string `json:"from,omitempty"`
	Mode      Mode   `json:"mode"`

	from time.Time
}

// ParseFilter reads q, month, fortnight, date, from and mode query values.
//
// date accepts dd, ddmm or ddmmyyyy; separators are ignored so 26/01/2025
// works too.
func ParseFilter(v url.Values) (Filter, error) {
	f := Filter{
		Text: strings.TrimSpace(v.Get("q")),
		Mode: Mode(strings.ToLower(strings.TrimSpace(v.Get("mode")))),
	}
	details := map[string]string{}

	if m := strings.TrimSpace(v.Get("month")); m != "" {
		mm, ok := common.NormalizeMonth(m)
		if !ok {
			details["month"] = "expected 1-12"
		}
		f.Month = mm
	}
	if fn := strings.TrimSpace(v.Get("fortnight")); fn != "" {
		n, err := strconv.Atoi(fn)
		if err != nil || (n != 1 && n != 2) {
			details["fortnight"] = "expected 1 or 2"
		}
		f.Fortnight = n
	}
	if d := digitsOnly(v.Get("date")); d != "" {
		switch len(d) {
		case 2, 4, 8:
			f.Date = d
		default:
			details["date"] = "expected dd, ddmm or ddmmyyyy"
		}
	}
	if from := strings.TrimSpace(v.Get("from")); from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			details["from"] = "expected YYYY-MM-DD"
		}
		f.From, f.from = from, t
	}
	switch f.Mode {
	case "":
		f.Mode = ModeMonth
	case ModeDay, ModeMonth, ModeYear:
	default:
		details["mode"] = "expected day, month or year"
	}

	if len(details) > 0 {
		return Filter{}, common.ValidationError("invalid report filter", details)
	}
	return f, nil
}

// Match reports whether o passes every filter. year is the sale year of o.
func (f Filter) Match(o db.Order, year int) bool {
	if f.Text != "" {
		q := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(o.Description), q) &&
			!strings.Contains(strings.ToLower(o.Responsible), q) &&
			!strings.Contains(strings.ToLower(o.Locality), q) {
			return false
		}
	}
	if f.Month != "" && o.Month != f.Month {
		return false
	}
	month, _ := strconv.Atoi(o.Month)
	day := int(o.Day)

	switch f.Fortnight {
	case 1:
		if day < 1 || day > 15 {
			return false
		}
	case 2:
		if day < 16 || day > 31 {
			return false
		}
	}

	if f.Date != "" {
		if atoi(f.Date[0:2]) != day {
			return false
		}
		if len(f.Date) >= 4 && atoi(f.Date[2:4]) != month {
			return false
		}
		if len(f.Date) == 8 && atoi(f.Date[4:8]) != year {
			return false
		}
	}

	if !f.from.IsZero() {
		sale := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if sale.Before(f.from) {
			return false
		}
	}
	return true
}

func (f Filter) cacheKey() string {
	return fmt.Sprintf("q=%s|m=%s|f=%d|d=%s|from=%s|mode=%s",
		strings.ToLower(f.Text), f.Month, f.Fortnight, f.Date, f.From, f.Mode)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
