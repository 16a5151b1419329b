package stock

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vinicius77777/acai-do-max/internal/common"
)

type Handler struct {
	Svc    *Service
	Logger zerolog.Logger
	// Write wraps the mutating routes (idempotency, rate limiting).
	Write []func(http.Handler) http.Handler
}

// Routes mounts the stock endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{code}", h.Get)

	w := r.With(h.Write...)
	w.Post("/", h.Entry)
	w.Put("/{code}", h.Update)
	w.Delete("/{code}", h.Delete)
}

func (h *Handler) Entry(w http.ResponseWriter, r *http.Request) {
	var in EntryInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	item, created, err := h.Svc.Entry(r.Context(), in)
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	common.JSON(w, status, map[string]any{"data": item, "created": created})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.List(r.Context())
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	code, ok := h.code(w, r)
	if !ok {
		return
	}
	item, err := h.Svc.Get(r.Context(), code)
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	code, ok := h.code(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	item, err := h.Svc.Update(r.Context(), code, in)
	if err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	code, ok := h.code(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), code); err != nil {
		common.WriteError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) code(w http.ResponseWriter, r *http.Request) (int64, bool) {
	code, err := strconv.ParseInt(chi.URLParam(r, "code"), 10, 64)
	if err != nil || code <= 0 {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "invalid stock code", nil)
		return 0, false
	}
	return code, true
}
