package demand

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/auth"
	"github.com/KromaEnergia/api-marketplace/internal/disclosure"
	"github.com/KromaEnergia/api-marketplace/internal/matching"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/notify"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/testutil"
)

const rfqBody = `{
	"materialType": "Steel",
	"materialGrade": "A36",
	"technicalSpecs": "ASTM A36 plate",
	"complianceRequirements": "ISO 9001",
	"incoterms": "FOB",
	"deliveryLocation": "Santos",
	"deliverySchedule": "Q3",
	"quantity": 100,
	"unit": "t"
}`

func setup(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewStore()
	log := testutil.Logger()
	engine := matching.NewEngine(db, store, matching.DefaultScorer(), notify.Nop{}, log)
	views := disclosure.NewService(db, store, notify.Nop{}, log)
	return NewHandler(NewService(db, store, engine, views, log)), db
}

func do(h http.HandlerFunc, method, target, body string, id models.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if id.Authenticated() {
		req = req.WithContext(auth.WithIdentity(req.Context(), id))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestCriarRFQMatchesExistingSupply(t *testing.T) {
	h, db := setup(t)
	m := testutil.CreateUser(t, db, models.RoleManufacturer, "Acme")
	s := testutil.CreateUser(t, db, models.RoleSupplier, "Steelco")
	testutil.Save(t, db, testutil.Supply(s.ID, "Steel", "A36"))

	rec := do(h.CriarRFQ, http.MethodPost, "/rfqs", rfqBody, models.Identity{UserID: m.ID, Role: models.RoleManufacturer})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res RFQResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.RFQ.IsActive)
	assert.True(t, res.RFQ.IsAnonymous)
	assert.Equal(t, m.ID, res.RFQ.ManufacturerID)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 60.0, res.Matches[0].MatchScore)
	assert.Equal(t, []string{matching.ReasonMaterialType, matching.ReasonMaterialGrade}, res.Matches[0].MatchReasons)
	assert.NotContains(t, rec.Body.String(), s.ID)
}

func TestCriarRFQExplicitFlags(t *testing.T) {
	h, db := setup(t)
	m := testutil.CreateUser(t, db, models.RoleManufacturer, "Acme")

	body := strings.Replace(rfqBody, `"unit": "t"`, `"unit": "t", "isActive": false, "isAnonymous": false`, 1)
	rec := do(h.CriarRFQ, http.MethodPost, "/rfqs", body, models.Identity{UserID: m.ID, Role: models.RoleManufacturer})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res RFQResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.RFQ.IsActive)
	assert.False(t, res.RFQ.IsAnonymous)
	assert.Empty(t, res.Matches)
}

func TestCriarRFQErrors(t *testing.T) {
	h, db := setup(t)
	m := testutil.CreateUser(t, db, models.RoleManufacturer, "Acme")
	s := testutil.CreateUser(t, db, models.RoleSupplier, "Steelco")
	manufacturer := models.Identity{UserID: m.ID, Role: models.RoleManufacturer}

	tests := []struct {
		name string
		body string
		id   models.Identity
		want int
	}{
		{"anonymous caller", rfqBody, models.Identity{}, http.StatusUnauthorized},
		{"supplier", rfqBody, models.Identity{UserID: s.ID, Role: models.RoleSupplier}, http.StatusForbidden},
		{"bad json", `{"materialType":`, manufacturer, http.StatusBadRequest},
		{"missing grade", strings.Replace(rfqBody, `"A36"`, `""`, 1), manufacturer, http.StatusBadRequest},
		{"zero quantity", strings.Replace(rfqBody, `"quantity": 100`, `"quantity": 0`, 1), manufacturer, http.StatusBadRequest},
		{"no compliance requirements", strings.Replace(rfqBody, `"complianceRequirements": "ISO 9001"`, `"complianceRequirements": ""`, 1), manufacturer, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h.CriarRFQ, http.MethodPost, "/rfqs", tt.body, tt.id)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	var n int64
	require.NoError(t, db.Model(&models.RFQ{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCriarOfftake(t *testing.T) {
	h, db := setup(t)
	m := testutil.CreateUser(t, db, models.RoleManufacturer, "Acme")
	s := testutil.CreateUser(t, db, models.RoleSupplier, "Steelco")
	testutil.Save(t, db, testutil.Supply(s.ID, "Steel", "A36"))
	id := models.Identity{UserID: m.ID, Role: models.RoleManufacturer}

	body := strings.Replace(rfqBody, `"unit": "t"`,
		`"unit": "t", "frequency": "MONTHLY", "startDate": "2026-01-01T00:00:00Z", "endDate": "2026-12-31T00:00:00Z"`, 1)
	rec := do(h.CriarOfftake, http.MethodPost, "/offtake-baselines", body, id)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res OfftakeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "MONTHLY", res.Offtake.Frequency)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, models.DemandOfftakeBaseline, res.Matches[0].DemandKind)

	backwards := strings.Replace(rfqBody, `"unit": "t"`,
		`"unit": "t", "frequency": "MONTHLY", "startDate": "2026-06-01T00:00:00Z", "endDate": "2026-01-01T00:00:00Z"`, 1)
	rec = do(h.CriarOfftake, http.MethodPost, "/offtake-baselines", backwards, id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h.CriarOfftake, http.MethodPost, "/offtake-baselines", rfqBody, id)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "frequency and startDate are required")
}

func TestListarRFQs(t *testing.T) {
	h, db := setup(t)
	m := testutil.CreateUser(t, db, models.RoleManufacturer, "Acme")
	other := testutil.CreateUser(t, db, models.RoleManufacturer, "Globex")
	s := testutil.CreateUser(t, db, models.RoleSupplier, "Steelco")
	testutil.Save(t, db, testutil.RFQ(m.ID, "Steel", "A36"))
	testutil.Save(t, db, testutil.RFQ(other.ID, "Copper", "C110"))

	rec := do(h.ListarRFQs, http.MethodGet, "/rfqs", "", models.Identity{UserID: s.ID, Role: models.RoleSupplier})
	require.Equal(t, http.StatusOK, rec.Code)
	var list []disclosure.RFQView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	for _, v := range list {
		assert.Equal(t, disclosure.AnonymousManufacturer, v.Party.CompanyName)
		assert.Empty(t, v.ManufacturerID)
	}
	assert.NotContains(t, rec.Body.String(), "Acme")

	rec = do(h.ListarRFQs, http.MethodGet, "/rfqs?mine=true", "", models.Identity{UserID: m.ID, Role: models.RoleManufacturer})
	require.Equal(t, http.StatusOK, rec.Code)
	list = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Acme", list[0].Party.CompanyName)

	rec = do(h.ListarRFQs, http.MethodGet, "/rfqs?mine=maybe", "", models.Identity{UserID: m.ID, Role: models.RoleManufacturer})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h.ListarOfftakes, http.MethodGet, "/offtake-baselines", "", models.Identity{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
