package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/testutil"
)

func TestCreateIfAbsent(t *testing.T) {
	db := testutil.NewDB(t)
	mp := testutil.NewMarketplace(t, db)
	store := repository.NewStore()

	dup := &models.Match{
		DemandKind:      mp.Match.DemandKind,
		DemandID:        mp.Match.DemandID,
		SupplyListingID: mp.Match.SupplyListingID,
		ManufacturerID:  mp.Manufacturer.ID,
		SupplierID:      mp.Supplier.ID,
		MatchScore:      90,
		Status:          models.MatchOpen,
	}
	created, err := store.Matches.CreateIfAbsent(db, dup)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Matches.FindByID(db, mp.Match.ID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, got.MatchScore)
	assert.Equal(t, []string{"Material type matches", "Material grade matches"}, got.MatchReasons)

	// mesmo par com a outra variante de demanda é um match distinto
	other := *dup
	other.ID = ""
	other.DemandKind = models.DemandOfftakeBaseline
	created, err = store.Matches.CreateIfAbsent(db, &other)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestListByPartyOrdersByScore(t *testing.T) {
	db := testutil.NewDB(t)
	mp := testutil.NewMarketplace(t, db)
	store := repository.NewStore()

	supply := testutil.Supply(mp.Supplier.ID, "Steel", "A36")
	testutil.Save(t, db, supply)
	best := &models.Match{
		DemandKind:      models.DemandRFQ,
		DemandID:        mp.RFQ.ID,
		SupplyListingID: supply.ID,
		ManufacturerID:  mp.Manufacturer.ID,
		SupplierID:      mp.Supplier.ID,
		MatchScore:      95,
		Status:          models.MatchOpen,
	}
	testutil.Save(t, db, best)

	list, err := store.Matches.ListByParty(db, mp.Supplier.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, best.ID, list[0].ID)

	stranger := testutil.CreateUser(t, db, models.RoleSupplier, "Other")
	list, err = store.Matches.ListByParty(db, stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFindNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore()

	_, err := store.Matches.FindByID(db, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = store.Demands.Find(db, models.DemandRFQ, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = store.Agreements.FindByID(db, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDuplicateUser(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore()

	u := &models.User{Email: "a@b.com", PasswordHash: "x", Role: models.RoleSupplier, CompanyName: "A"}
	require.NoError(t, store.Users.Create(db, u))

	again := &models.User{Email: "a@b.com", PasswordHash: "x", Role: models.RoleSupplier, CompanyName: "B"}
	err := store.Users.Create(db, again)
	assert.True(t, apperr.Is(err, apperr.KindDuplicate), "got %v", err)
}

func TestDeactivateExpired(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore()
	m := testutil.CreateUser(t, db, models.RoleManufacturer, "Acme")
	s := testutil.CreateUser(t, db, models.RoleSupplier, "Steelco")

	now := time.Now().UTC()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	expired := testutil.RFQ(m.ID, "Steel", "A36")
	expired.ExpiresAt = &past
	testutil.Save(t, db, expired)
	fresh := testutil.RFQ(m.ID, "Steel", "A36")
	fresh.ExpiresAt = &future
	testutil.Save(t, db, fresh)
	open := testutil.RFQ(m.ID, "Steel", "A36")
	testutil.Save(t, db, open)

	ended := testutil.Offtake(m.ID, "Steel", "A36")
	ended.EndDate = &past
	testutil.Save(t, db, ended)

	stale := testutil.Supply(s.ID, "Steel", "A36")
	stale.ValidUntil = &past
	testutil.Save(t, db, stale)
	current := testutil.Supply(s.ID, "Steel", "A36")
	testutil.Save(t, db, current)

	rfqs, offtakes, err := store.Demands.DeactivateExpired(db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rfqs)
	assert.Equal(t, int64(1), offtakes)

	n, err := store.Supply.DeactivateExpired(db, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	active, err := store.Demands.FindActiveByMaterial(db, models.DemandRFQ, "Steel", "A36")
	require.NoError(t, err)
	assert.Len(t, active, 2)

	listings, err := store.Supply.ListActive(db)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, current.ID, listings[0].ID)

	// segunda passada não encontra mais nada
	rfqs, offtakes, err = store.Demands.DeactivateExpired(db, now)
	require.NoError(t, err)
	assert.Zero(t, rfqs+offtakes)
}

func TestMutualOptInMatchIDs(t *testing.T) {
	db := testutil.NewDB(t)
	mp := testutil.NewMarketplace(t, db)
	store := repository.NewStore()

	req := &models.ContactRequest{
		MatchID:       mp.Match.ID,
		RequestedByID: mp.Manufacturer.ID,
		RequestedToID: mp.Supplier.ID,
	}
	require.NoError(t, store.Contacts.Create(db, req))

	ids, err := store.Contacts.MutualOptInMatchIDs(db, mp.Supplier.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.Contacts.Accept(db, req.ID, time.Now().UTC()))
	require.NoError(t, store.Contacts.MarkMutualOptIn(db, mp.Match.ID))

	for _, u := range []string{mp.Manufacturer.ID, mp.Supplier.ID} {
		ids, err = store.Contacts.MutualOptInMatchIDs(db, u)
		require.NoError(t, err)
		assert.Equal(t, []string{mp.Match.ID}, ids)
	}

	ok, err := store.Contacts.HasMutualOptIn(db, mp.Match.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	err = store.Contacts.Create(db, &models.ContactRequest{
		MatchID:       mp.Match.ID,
		RequestedByID: mp.Manufacturer.ID,
		RequestedToID: mp.Supplier.ID,
	})
	assert.True(t, apperr.Is(err, apperr.KindDuplicate))
}
