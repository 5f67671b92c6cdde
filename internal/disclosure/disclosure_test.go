package disclosure

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/notify"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
	"github.com/KromaEnergia/api-marketplace/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []notify.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func setup(t *testing.T) (*Service, *gorm.DB, *testutil.Marketplace, *recordingPublisher) {
	t.Helper()
	db := testutil.NewDB(t)
	pub := &recordingPublisher{}
	svc := NewService(db, repository.NewStore(), pub, testutil.Logger())
	return svc, db, testutil.NewMarketplace(t, db), pub
}

func matchStatus(t *testing.T, db *gorm.DB, id string) models.MatchStatus {
	t.Helper()
	var m models.Match
	require.NoError(t, db.First(&m, "id = ?", id).Error)
	return m.Status
}

func contactRows(t *testing.T, db *gorm.DB, matchID string) []models.ContactRequest {
	t.Helper()
	var list []models.ContactRequest
	require.NoError(t, db.Where("match_id = ?", matchID).Find(&list).Error)
	return list
}

func TestCreateContactRequest(t *testing.T) {
	svc, db, mp, pub := setup(t)
	ctx := context.Background()

	cr, err := svc.CreateContactRequest(ctx, mp.ManufacturerIdentity(), CreateContactInput{MatchID: mp.Match.ID, Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, mp.Manufacturer.ID, cr.RequestedByID)
	assert.Equal(t, mp.Supplier.ID, cr.RequestedToID)
	assert.False(t, cr.IsAccepted)
	assert.Equal(t, models.MatchContactRequested, matchStatus(t, db, mp.Match.ID))
	assert.Equal(t, []notify.EventType{notify.EventContactRequested}, pub.types())

	_, err = svc.CreateContactRequest(ctx, mp.ManufacturerIdentity(), CreateContactInput{MatchID: mp.Match.ID})
	assert.True(t, apperr.Is(err, apperr.KindDuplicate), "got %v", err)

	// supplier-side request targets the manufacturer
	cr2, err := svc.CreateContactRequest(ctx, mp.SupplierIdentity(), CreateContactInput{MatchID: mp.Match.ID})
	require.NoError(t, err)
	assert.Equal(t, mp.Manufacturer.ID, cr2.RequestedToID)
	assert.Len(t, contactRows(t, db, mp.Match.ID), 2)
}

func TestCreateContactRequestErrors(t *testing.T) {
	svc, db, mp, _ := setup(t)
	ctx := context.Background()
	outsider := testutil.CreateUser(t, db, models.RoleSupplier, "Other")

	tests := []struct {
		name   string
		caller models.Identity
		in     CreateContactInput
		kind   apperr.Kind
	}{
		{"anonymous caller", models.Identity{}, CreateContactInput{MatchID: mp.Match.ID}, apperr.KindUnauthenticated},
		{"missing match id", mp.ManufacturerIdentity(), CreateContactInput{}, apperr.KindValidation},
		{"message too long", mp.ManufacturerIdentity(), CreateContactInput{MatchID: mp.Match.ID, Message: strings.Repeat("x", 2001)}, apperr.KindValidation},
		{"unknown match", mp.ManufacturerIdentity(), CreateContactInput{MatchID: "nope"}, apperr.KindNotFound},
		{"not a party", models.Identity{UserID: outsider.ID, Role: models.RoleSupplier}, CreateContactInput{MatchID: mp.Match.ID}, apperr.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateContactRequest(ctx, tt.caller, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "got %v", err)
		})
	}
	assert.Equal(t, models.MatchOpen, matchStatus(t, db, mp.Match.ID))
}

func TestCreateContactRequestInvalidMatch(t *testing.T) {
	svc, db, mp, _ := setup(t)
	require.NoError(t, db.Model(&models.Match{}).Where("id = ?", mp.Match.ID).Update("demand_kind", "").Error)

	_, err := svc.CreateContactRequest(context.Background(), mp.ManufacturerIdentity(), CreateContactInput{MatchID: mp.Match.ID})
	assert.True(t, apperr.Is(err, apperr.KindInvalidMatch), "got %v", err)
}

func TestAcceptSingleRequestReachesMutualOptIn(t *testing.T) {
	svc, db, mp, pub := setup(t)
	ctx := context.Background()

	cr, err := svc.CreateContactRequest(ctx, mp.ManufacturerIdentity(), CreateContactInput{MatchID: mp.Match.ID})
	require.NoError(t, err)

	_, err = svc.AcceptContactRequest(ctx, mp.ManufacturerIdentity(), cr.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden), "requester cannot accept own request")

	accepted, err := svc.AcceptContactRequest(ctx, mp.SupplierIdentity(), cr.ID)
	require.NoError(t, err)
	assert.True(t, accepted.IsAccepted)
	assert.True(t, accepted.IsMutualOptIn)
	assert.NotNil(t, accepted.AcceptedAt)

	for _, row := range contactRows(t, db, mp.Match.ID) {
		assert.True(t, row.IsMutualOptIn)
	}
	assert.Equal(t, models.MatchMutualOptIn, matchStatus(t, db, mp.Match.ID))

	ok, err := svc.HasMutualOptIn(ctx, mp.Match.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []notify.EventType{notify.EventContactRequested, notify.EventMutualOptIn}, pub.types())

	_, err = svc.CreateContactRequest(ctx, mp.SupplierIdentity(), CreateContactInput{MatchID: mp.Match.ID})
	assert.True(t, apperr.Is(err, apperr.KindPrecondition), "got %v", err)
}

func TestAcceptTwoRequests(t *testing.T) {
	svc, db, mp, _ := setup(t)
	ctx := context.Background()

	fromMaker, err := svc.CreateContactRequest(ctx, mp.ManufacturerIdentity(), CreateContactInput{MatchID: mp.Match.ID})
	require.NoError(t, err)
	fromSeller, err := svc.CreateContactRequest(ctx, mp.SupplierIdentity(), CreateContactInput{MatchID: mp.Match.ID})
	require.NoError(t, err)

	first, err := svc.AcceptContactRequest(ctx, mp.SupplierIdentity(), fromMaker.ID)
	require.NoError(t, err)
	assert.False(t, first.IsMutualOptIn)
	assert.Equal(t, models.MatchContactRequested, matchStatus(t, db, mp.Match.ID))

	ok, err := svc.HasMutualOptIn(ctx, mp.Match.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	views, err := svc.ListMatches(ctx, mp.ManufacturerIdentity())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, AnonymousSupplier, views[0].Supplier.CompanyName)

	_, err = svc.AcceptContactRequest(ctx, mp.ManufacturerIdentity(), fromSeller.ID)
	require.NoError(t, err)

	rows := contactRows(t, db, mp.Match.ID)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.True(t, row.IsAccepted)
		assert.True(t, row.IsMutualOptIn)
	}
	assert.Equal(t, models.MatchMutualOptIn, matchStatus(t, db, mp.Match.ID))
}

func TestConcurrentCrossAcceptsReachMutualOptIn(t *testing.T) {
	for round := 0; round < 10; round++ {
		svc, db, mp, _ := setup(t)
		ctx := context.Background()

		fromMaker, err := svc.CreateContactRequest(ctx, mp.ManufacturerIdentity(), CreateContactInput{MatchID: mp.Match.ID})
		require.NoError(t, err)
		fromSeller, err := svc.CreateContactRequest(ctx, mp.SupplierIdentity(), CreateContactInput{MatchID: mp.Match.ID})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = svc.AcceptContactRequest(ctx, mp.SupplierIdentity(), fromMaker.ID)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = svc.AcceptContactRequest(ctx, mp.ManufacturerIdentity(), fromSeller.ID)
		}()
		wg.Wait()

		require.NoError(t, errs[0], "round %d", round)
		require.NoError(t, errs[1], "round %d", round)
		for _, row := range contactRows(t, db, mp.Match.ID) {
			assert.True(t, row.IsMutualOptIn, "round %d", round)
		}
		assert.Equal(t, models.MatchMutualOptIn, matchStatus(t, db, mp.Match.ID), "round %d", round)
	}
}

func TestAcceptIsIdempotent(t *testing.T) {
	svc, _, mp, pub := setup(t)
	ctx := context.Background()

	cr, err := svc.CreateContactRequest(ctx, mp.ManufacturerIdentity(), CreateContactInput{MatchID: mp.Match.ID})
	require.NoError(t, err)
	_, err = svc.AcceptContactRequest(ctx, mp.SupplierIdentity(), cr.ID)
	require.NoError(t, err)

	again, err := svc.AcceptContactRequest(ctx, mp.SupplierIdentity(), cr.ID)
	require.NoError(t, err)
	assert.True(t, again.IsMutualOptIn)
	assert.Len(t, pub.events, 2, "mutual opt-in announced once")
}

func TestAcceptDoesNotMoveStatusBackwards(t *testing.T) {
	svc, db, mp, _ := setup(t)
	ctx := context.Background()

	cr, err := svc.CreateContactRequest(ctx, mp.ManufacturerIdentity(), CreateContactInput{MatchID: mp.Match.ID})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Match{}).Where("id = ?", mp.Match.ID).Update("status", models.MatchNegotiating).Error)

	_, err = svc.AcceptContactRequest(ctx, mp.SupplierIdentity(), cr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchNegotiating, matchStatus(t, db, mp.Match.ID))
}

func TestAcceptErrors(t *testing.T) {
	svc, _, mp, _ := setup(t)
	ctx := context.Background()

	_, err := svc.AcceptContactRequest(ctx, models.Identity{}, "x")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	_, err = svc.AcceptContactRequest(ctx, mp.SupplierIdentity(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
