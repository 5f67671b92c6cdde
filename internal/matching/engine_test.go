package matching

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

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

type fixture struct {
	db        *gorm.DB
	engine    *Engine
	publisher *recordingPublisher
	maker     *models.User
	seller    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	pub := &recordingPublisher{}
	return &fixture{
		db:        db,
		engine:    NewEngine(db, repository.NewStore(), DefaultScorer(), pub, testutil.Logger()),
		publisher: pub,
		maker:     testutil.CreateUser(t, db, models.RoleManufacturer, "Acme"),
		seller:    testutil.CreateUser(t, db, models.RoleSupplier, "Steelco"),
	}
}

func countMatches(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Match{}).Count(&n).Error)
	return n
}

func TestConcurrentTriggersCreateOneMatchPerPair(t *testing.T) {
	f := newFixture(t)
	testutil.Save(t, f.db, testutil.RFQ(f.maker.ID, "Steel", "A36"))
	testutil.Save(t, f.db, testutil.Offtake(f.maker.ID, "Steel", "A36"))
	supply := testutil.Supply(f.seller.ID, "Steel", "A36")
	testutil.Save(t, f.db, supply)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Run(context.Background(), SupplyTrigger(supply.ID))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), countMatches(t, f.db))
}

func TestRunFromSupplyMatchesRFQ(t *testing.T) {
	f := newFixture(t)
	rfq := testutil.RFQ(f.maker.ID, "Steel", "A36")
	testutil.Save(t, f.db, rfq)
	supply := testutil.Supply(f.seller.ID, "Steel", "A36")
	supply.AvailableVolume = 500
	testutil.Save(t, f.db, supply)

	created, err := f.engine.Run(context.Background(), SupplyTrigger(supply.ID))
	require.NoError(t, err)
	require.Len(t, created, 1)

	m := created[0]
	assert.Equal(t, models.DemandRFQ, m.DemandKind)
	assert.Equal(t, rfq.ID, m.DemandID)
	assert.Equal(t, supply.ID, m.SupplyListingID)
	assert.Equal(t, f.maker.ID, m.ManufacturerID)
	assert.Equal(t, f.seller.ID, m.SupplierID)
	assert.InDelta(t, 60, m.MatchScore, 0.001)
	assert.Equal(t, []string{ReasonMaterialType, ReasonMaterialGrade}, m.MatchReasons)
	assert.Equal(t, models.MatchOpen, m.Status)

	var stored models.Match
	require.NoError(t, f.db.First(&stored, "id = ?", m.ID).Error)
	assert.Equal(t, m.MatchReasons, stored.MatchReasons)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, notify.EventMatchCreated, f.publisher.events[0].Type)
	assert.ElementsMatch(t, []string{f.maker.ID, f.seller.ID}, f.publisher.events[0].Recipients)
}

func TestRunFromSupplyScansBothDemandKinds(t *testing.T) {
	f := newFixture(t)
	testutil.Save(t, f.db, testutil.RFQ(f.maker.ID, "Steel", "A36"))
	testutil.Save(t, f.db, testutil.Offtake(f.maker.ID, "Steel", "A36"))
	supply := testutil.Supply(f.seller.ID, "Steel", "A36")
	testutil.Save(t, f.db, supply)

	created, err := f.engine.Run(context.Background(), SupplyTrigger(supply.ID))
	require.NoError(t, err)
	require.Len(t, created, 2)

	kinds := []models.DemandKind{created[0].DemandKind, created[1].DemandKind}
	assert.ElementsMatch(t, []models.DemandKind{models.DemandRFQ, models.DemandOfftakeBaseline}, kinds)
}

func TestRunFromDemand(t *testing.T) {
	f := newFixture(t)
	testutil.Save(t, f.db, testutil.Supply(f.seller.ID, "Steel", "A36"))
	testutil.Save(t, f.db, testutil.Supply(f.seller.ID, "Steel", "A572"))
	testutil.Save(t, f.db, testutil.Supply(f.seller.ID, "Copper", "A36"))

	offtake := testutil.Offtake(f.maker.ID, "Steel", "A36")
	testutil.Save(t, f.db, offtake)

	created, err := f.engine.Run(context.Background(), DemandTrigger(models.DemandFromOfftake(offtake)))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, models.DemandOfftakeBaseline, created[0].DemandKind)
	assert.Equal(t, offtake.ID, created[0].DemandID)
}

func TestRunIgnoresMismatchesAndInactive(t *testing.T) {
	f := newFixture(t)
	testutil.Save(t, f.db, testutil.RFQ(f.maker.ID, "Steel", "a36"))
	testutil.Save(t, f.db, testutil.RFQ(f.maker.ID, "steel", "A36"))
	inactive := testutil.RFQ(f.maker.ID, "Steel", "A36")
	testutil.Save(t, f.db, inactive)
	require.NoError(t, f.db.Model(inactive).Update("is_active", false).Error)

	supply := testutil.Supply(f.seller.ID, "Steel", "A36")
	testutil.Save(t, f.db, supply)

	created, err := f.engine.Run(context.Background(), SupplyTrigger(supply.ID))
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Zero(t, countMatches(t, f.db))
	assert.Empty(t, f.publisher.events)
}

func TestRunInactiveTriggerCreatesNothing(t *testing.T) {
	f := newFixture(t)
	testutil.Save(t, f.db, testutil.RFQ(f.maker.ID, "Steel", "A36"))
	supply := testutil.Supply(f.seller.ID, "Steel", "A36")
	testutil.Save(t, f.db, supply)
	require.NoError(t, f.db.Model(supply).Update("is_active", false).Error)

	created, err := f.engine.Run(context.Background(), SupplyTrigger(supply.ID))
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	rfq := testutil.RFQ(f.maker.ID, "Steel", "A36")
	testutil.Save(t, f.db, rfq)
	supply := testutil.Supply(f.seller.ID, "Steel", "A36")
	testutil.Save(t, f.db, supply)

	_, err := f.engine.Run(context.Background(), SupplyTrigger(supply.ID))
	require.NoError(t, err)

	again, err := f.engine.Run(context.Background(), SupplyTrigger(supply.ID))
	require.NoError(t, err)
	assert.Empty(t, again)

	fromDemand, err := f.engine.Run(context.Background(), DemandTrigger(models.DemandFromRFQ(rfq)))
	require.NoError(t, err)
	assert.Empty(t, fromDemand)

	assert.Equal(t, int64(1), countMatches(t, f.db))
	assert.Len(t, f.publisher.events, 1)
}

func TestRunThresholdFromScorer(t *testing.T) {
	f := newFixture(t)
	f.engine.scorer = NewScorer(70, MaterialTypeCriterion(30), MaterialGradeCriterion(30))
	testutil.Save(t, f.db, testutil.RFQ(f.maker.ID, "Steel", "A36"))
	supply := testutil.Supply(f.seller.ID, "Steel", "A36")
	testutil.Save(t, f.db, supply)

	created, err := f.engine.Run(context.Background(), SupplyTrigger(supply.ID))
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestRunUnknownRecord(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Run(context.Background(), SupplyTrigger("missing"))
	assert.Error(t, err)

	_, err = f.engine.Run(context.Background(), Trigger{Side: SideDemand, DemandKind: "BOGUS", ID: "x"})
	assert.Error(t, err)
}

func TestRematchAll(t *testing.T) {
	f := newFixture(t)
	testutil.Save(t, f.db, testutil.RFQ(f.maker.ID, "Steel", "A36"))
	testutil.Save(t, f.db, testutil.Supply(f.seller.ID, "Steel", "A36"))
	testutil.Save(t, f.db, testutil.Supply(f.seller.ID, "Steel", "A36"))

	n, err := f.engine.RematchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.engine.RematchAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
