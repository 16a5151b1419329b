package order

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vinicius77777/acai-do-max/internal/common"
)

type Handler struct {
	Svc          *Service
	Logger       zerolog.Logger
	DefaultLimit int
	MaxLimit     int
	// Write wraps the mutating routes (idempotency, rate limiting).
	Write []func(http.Handler) http.Handler
}

// Routes mounts the order endpoints on r. Export routes are mounted by the
// caller since they live with the report renderers.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/preview", h.Preview)
	r.Get("/last", h.Last)
	r.Get("/{id}", h.Get)

	w := r.With(h.Write...)
	w.Post("/", h.Create)
	w.Post("/batch", h.CreateBatch)
	w.Put("/{id}", h.Edit)
	w.Delete("/{id}", h.Delete)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var in PreviewInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	quote, err := h.Svc.Preview(r.Context(), in)
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	o, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Orders []CreateInput `json:"orders"`
	}
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	orders, err := h.Svc.CreateBatch(r.Context(), body.Orders)
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": orders})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.defaultLimit(), h.MaxLimit)
	orders, total, err := h.Svc.List(r.Context(), ListParams{
		Query:  r.URL.Query().Get("q"),
		Month:  r.URL.Query().Get("month"),
		Limit:  perPage,
		Offset: common.Offset(page, perPage),
	})
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	o, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func (h *Handler) Last(w http.ResponseWriter, r *http.Request) {
	last, err := h.Svc.Last(r.Context(), r.URL.Query().Get("responsible"))
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": last})
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var in EditInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	o, err := h.Svc.Edit(r.Context(), id, in)
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid order id", nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) defaultLimit() int {
	if h.DefaultLimit > 0 {
		return h.DefaultLimit
	}
	return 50
}
