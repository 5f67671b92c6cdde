// Package agreement expõe criação, execução e consulta de acordos.
package agreement

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

// POST /agreements
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	var in workflow.AgreementInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	a, err := h.Workflow.CreateAgreement(r.Context(), auth.IdentityFrom(r.Context()), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, a)
}

// POST /agreements/{id}/execute
func (h *Handler) Executar(w http.ResponseWriter, r *http.Request) {
	a, err := h.Workflow.ExecuteAgreement(r.Context(), auth.IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, a)
}

// GET /agreements
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	list, err := h.Workflow.ListAgreements(r.Context(), auth.IdentityFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

// GET /agreements/{id}
func (h *Handler) BuscarPorID(w http.ResponseWriter, r *http.Request) {
	a, err := h.Workflow.GetAgreement(r.Context(), auth.IdentityFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, a)
}
