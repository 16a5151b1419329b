package report

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vinicius77777/acai-do-max/internal/common"
)

type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
	Now    func() time.Time
}

// Routes mounts the profit report endpoints. Stock and order exports are
// mounted by the caller under their own resources.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/profit", h.Profit)
	r.Get("/profit.xlsx", h.ProfitXLSX)
	r.Get("/profit.pdf", h.ProfitPDF)
}

func (h *Handler) Profit(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.profit(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rep})
}

func (h *Handler) ProfitXLSX(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.profit(w, r)
	if !ok {
		return
	}
	h.send(w, xlsxContentType, h.filename("relatorio_lucro", "xlsx"), func(buf io.Writer) error {
		return WriteProfitXLSX(buf, rep)
	})
}

func (h *Handler) ProfitPDF(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.profit(w, r)
	if !ok {
		return
	}
	h.send(w, "application/pdf", h.filename("relatorio_lucro", "pdf"), func(buf io.Writer) error {
		return WriteProfitPDF(buf, rep)
	})
}

func (h *Handler) StockXLSX(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.Stock(r.Context())
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	h.send(w, xlsxContentType, h.filename("estoque", "xlsx"), func(buf io.Writer) error {
		return WriteStockXLSX(buf, items)
	})
}

func (h *Handler) OrdersXLSX(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	orders, err := h.Svc.Orders(r.Context(), f)
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	h.send(w, xlsxContentType, h.filename("pedidos", "xlsx"), func(buf io.Writer) error {
		return WriteOrdersXLSX(buf, orders)
	})
}

func (h *Handler) profit(w http.ResponseWriter, r *http.Request) (Profit, bool) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return Profit{}, false
	}
	rep, err := h.Svc.Profit(r.Context(), f)
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return Profit{}, false
	}
	return rep, true
}

// send renders into a buffer first so a failed render still gets a JSON error.
func (h *Handler) send(w http.ResponseWriter, contentType, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) filename(base, ext string) string {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return base + "_" + now().Format("2006-01-02") + "." + ext
}
