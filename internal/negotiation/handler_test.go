package negotiation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KromaEnergia/api-marketplace/internal/auth"
	"github.com/KromaEnergia/api-marketplace/internal/disclosure"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/notify"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/testutil"
	"github.com/KromaEnergia/api-marketplace/internal/workflow"
)

func TestNegotiationHandlers(t *testing.T) {
	db := testutil.NewDB(t)
	mp := testutil.NewMarketplace(t, db)
	store := repository.NewStore()
	log := testutil.Logger()
	disc := disclosure.NewService(db, store, notify.Nop{}, log)
	h := NewHandler(workflow.NewService(db, store, notify.Nop{}, log))

	post := func(id models.Identity) *httptest.ResponseRecorder {
		body := `{"matchId":"` + mp.Match.ID + `","proposedPrice":950,"proposedTerms":"net 30"}`
		req := httptest.NewRequest(http.MethodPost, "/negotiations", strings.NewReader(body))
		req = req.WithContext(auth.WithIdentity(req.Context(), id))
		rec := httptest.NewRecorder()
		h.Criar(rec, req)
		return rec
	}

	rec := post(mp.ManufacturerIdentity())
	assert.Equal(t, http.StatusConflict, rec.Code, "no mutual opt-in yet")

	ctx := context.Background()
	cr, err := disc.CreateContactRequest(ctx, mp.ManufacturerIdentity(), disclosure.CreateContactInput{MatchID: mp.Match.ID})
	require.NoError(t, err)
	_, err = disc.AcceptContactRequest(ctx, mp.SupplierIdentity(), cr.ID)
	require.NoError(t, err)

	rec = post(mp.ManufacturerIdentity())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = post(mp.SupplierIdentity())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/matches/"+mp.Match.ID+"/negotiations", nil)
	req = mux.SetURLVars(req.WithContext(auth.WithIdentity(req.Context(), mp.SupplierIdentity())), map[string]string{"id": mp.Match.ID})
	rec = httptest.NewRecorder()
	h.ListarPorMatch(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Negotiation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	stranger := testutil.CreateUser(t, db, models.RoleSupplier, "Other")
	req = httptest.NewRequest(http.MethodGet, "/matches/"+mp.Match.ID+"/negotiations", nil)
	req = mux.SetURLVars(req.WithContext(auth.WithIdentity(req.Context(), models.Identity{UserID: stranger.ID, Role: models.RoleSupplier})), map[string]string{"id": mp.Match.ID})
	rec = httptest.NewRecorder()
	h.ListarPorMatch(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
