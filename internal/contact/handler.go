// Package contact expõe pedidos de contato: criação, aceite e listagem.
package contact

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/KromaEnergia/api-marketplace/internal/auth"
	"github.com/KromaEnergia/api-marketplace/internal/disclosure"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/utils"
)

type Handler struct {
	Disclosure *disclosure.Service
}

func NewHandler(d *disclosure.Service) *Handler {
	return &Handler{Disclosure: d}
}

// visible esconde o id da contraparte enquanto não houver opt-in mútuo.
func visible(c *models.ContactRequest, callerID string) *models.ContactRequest {
	out := *c
	if !out.IsMutualOptIn {
		if out.RequestedByID == callerID {
			out.RequestedToID = ""
		} else {
			out.RequestedByID = ""
		}
	}
	return &out
}

// POST /contact-requests
func (h *Handler) Criar(w http.ResponseWriter, r *http.Request) {
	var in disclosure.CreateContactInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	caller := auth.IdentityFrom(r.Context())
	c, err := h.Disclosure.CreateContactRequest(r.Context(), caller, in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, visible(c, caller.UserID))
}

// POST /contact-requests/{id}/accept
func (h *Handler) Aceitar(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFrom(r.Context())
	c, err := h.Disclosure.AcceptContactRequest(r.Context(), caller, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, visible(c, caller.UserID))
}

// GET /contact-requests
func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	list, err := h.Disclosure.ListContactRequests(r.Context(), auth.IdentityFrom(r.Context()))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}
