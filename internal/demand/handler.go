package demand

import (
	"net/http"
	"strconv"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/auth"
	"github.com/KromaEnergia/api-marketplace/internal/utils"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

// mineParam lê ?mine=true; ausente vale false.
func mineParam(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("mine")
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperr.Validation("mine must be true or false")
	}
	return b, nil
}

// POST /rfqs
func (h *Handler) CriarRFQ(w http.ResponseWriter, r *http.Request) {
	var in RFQInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	res, err := h.Service.CreateRFQ(r.Context(), auth.IdentityFrom(r.Context()), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, res)
}

// GET /rfqs
func (h *Handler) ListarRFQs(w http.ResponseWriter, r *http.Request) {
	mine, err := mineParam(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	list, err := h.Service.ListRFQs(r.Context(), auth.IdentityFrom(r.Context()), mine)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

// POST /offtake-baselines
func (h *Handler) CriarOfftake(w http.ResponseWriter, r *http.Request) {
	var in OfftakeInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	res, err := h.Service.CreateOfftake(r.Context(), auth.IdentityFrom(r.Context()), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, res)
}

// GET /offtake-baselines
func (h *Handler) ListarOfftakes(w http.ResponseWriter, r *http.Request) {
	mine, err := mineParam(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	list, err := h.Service.ListOfftakes(r.Context(), auth.IdentityFrom(r.Context()), mine)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}
