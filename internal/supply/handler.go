package supply

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

// POST /supply-listings
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	var in ListingInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	res, err := h.Service.Create(r.Context(), auth.IdentityFrom(r.Context()), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, res)
}

// GET /supply-listings?mine=true
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	mine := false
	if v := r.URL.Query().Get("mine"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			utils.WriteError(w, r, apperr.Validation("mine must be true or false"))
			return
		}
		mine = b
	}
	list, err := h.Service.List(r.Context(), auth.IdentityFrom(r.Context()), mine)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}
