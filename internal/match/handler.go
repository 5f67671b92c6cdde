// Package match expõe a listagem de matches do chamador.
package match

import (
	"net/http"

	"github.com/KromaEnergia/api-marketplace/internal/auth"
	"github.com/KromaEnergia/api-marketplace/internal/disclosure"
	"github.com/KromaEnergia/api-marketplace/internal/utils"
)

type Handler struct {
	Disclosure *disclosure.Service
}

func NewHandler(d *disclosure.Service) *Handler {
	return &Handler{Disclosure: d}
}

// GET /matches
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	list, err := h.Disclosure.ListMatches(r.Context(), auth.IdentityFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}
