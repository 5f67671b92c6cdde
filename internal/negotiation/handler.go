// Package negotiation expõe as rodadas de negociação de um match.
package negotiation

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/KromaEnergia/api-marketplace/internal/auth"
	"github.com/KromaEnergia/api-marketplace/internal/utils"
	"github.com/KromaEnergia/api-marketplace/internal/workflow"
)

type Handler struct {
	Workflow *workflow.Service
}

func NewHandler(wf *workflow.Service) *Handler {
	return &Handler{Workflow: wf}
}

// POST /negotiations
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	var in workflow.NegotiationInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	n, err := h.Workflow.CreateNegotiation(r.Context(), auth.IdentityFrom(r.Context()), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, n)
}

// GET /matches/{id}/negotiations
func (h *Handler) ListarPorMatch(w http.ResponseWriter, r *http.Request) {
	list, err := h.Workflow.ListNegotiations(r.Context(), auth.IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}
