package match

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KromaEnergia/api-marketplace/internal/auth"
	"github.com/KromaEnergia/api-marketplace/internal/disclosure"
	"github.com/KromaEnergia/api-marketplace/internal/notify"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/testutil"
)

func TestListar(t *testing.T) {
	db := testutil.NewDB(t)
	mp := testutil.NewMarketplace(t, db)
	h := NewHandler(disclosure.NewService(db, repository.NewStore(), notify.Nop{}, testutil.Logger()))

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), mp.ManufacturerIdentity()))
	rec := httptest.NewRecorder()
	h.Listar(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []disclosure.MatchView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, mp.Match.ID, list[0].ID)
	assert.Equal(t, disclosure.AnonymousSupplier, list[0].Supplier.CompanyName)
	assert.NotContains(t, rec.Body.String(), "Steelco")
	assert.NotContains(t, rec.Body.String(), mp.Supplier.ID)

	rec = httptest.NewRecorder()
	h.Listar(rec, httptest.NewRequest(http.MethodGet, "/matches", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
