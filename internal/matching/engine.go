package matching

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/metrics"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/notify"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
)

// Side é o lado do marketplace que disparou o matching.
type Side string

const (
	SideDemand Side = "demand"
	SideSupply Side = "supply"
)

// Trigger identifica o registro recém-persistido. DemandKind só é usado
// quando Side é SideDemand.
type Trigger struct {
	Side       Side
	DemandKind models.DemandKind
	ID         string
}

// DemandTrigger builds the trigger for a freshly created demand.
func DemandTrigger(d models.Demand) Trigger {
	return Trigger{Side: SideDemand, DemandKind: d.Kind, ID: d.ID()}
}

// SupplyTrigger builds the trigger for a freshly created listing.
func SupplyTrigger(id string) Trigger {
	return Trigger{Side: SideSupply, ID: id}
}

type Engine struct {
	db        *gorm.DB
	store     *repository.Store
	scorer    *Scorer
	publisher notify.Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewEngine(db *gorm.DB, store *repository.Store, scorer *Scorer, publisher notify.Publisher, logger *zap.Logger) *Engine {
	if scorer == nil {
		scorer = DefaultScorer()
	}
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Engine{
		db:        db,
		store:     store,
		scorer:    scorer,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("marketplace/matching"),
	}
}

// Run executa o matching em uma transação própria e anuncia os matches
// criados após o commit.
func (e *Engine) Run(ctx context.Context, t Trigger) ([]models.Match, error) {
	var created []models.Match
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = e.RunTx(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.Announce(ctx, created)
	return created, nil
}

// RunTx executa o matching dentro de tx, normalmente a mesma transação que
// persistiu o registro. Pares já existentes são ignorados, então repetir a
// chamada é seguro. O chamador deve invocar Announce depois do commit.
func (e *Engine) RunTx(ctx context.Context, tx *gorm.DB, t Trigger) ([]models.Match, error) {
	ctx, span := e.tracer.Start(ctx, "matching.Run", trace.WithAttributes(
		attribute.String("side", string(t.Side)),
		attribute.String("record_id", t.ID),
	))
	defer span.End()

	metrics.MatchingRunsTotal.WithLabelValues(string(t.Side)).Inc()
	tx = tx.WithContext(ctx)

	var (
		created []models.Match
		err     error
	)
	switch t.Side {
	case SideDemand:
		created, err = e.fromDemand(tx, t)
	case SideSupply:
		created, err = e.fromSupply(tx, t.ID)
	default:
		err = apperr.Validation("unknown matching side " + string(t.Side))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("matches_created", len(created)))
	e.logger.Info("matching run finished",
		zap.String("side", string(t.Side)),
		zap.String("record_id", t.ID),
		zap.Int("matches_created", len(created)),
	)
	return created, nil
}

func (e *Engine) fromDemand(tx *gorm.DB, t Trigger) ([]models.Match, error) {
	demand, err := e.store.Demands.Find(tx, t.DemandKind, t.ID)
	if err != nil {
		return nil, err
	}
	terms := demand.Terms()
	if !terms.IsActive {
		return nil, nil
	}

	listings, err := e.store.Supply.FindActiveByMaterial(tx, terms.MaterialType, terms.MaterialGrade)
	if err != nil {
		return nil, err
	}

	var created []models.Match
	for i := range listings {
		m, ok, err := e.consider(tx, Candidate{Demand: demand, Supply: &listings[i]})
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, *m)
		}
	}
	return created, nil
}

// fromSupply varre as duas variantes de demanda de forma independente.
func (e *Engine) fromSupply(tx *gorm.DB, supplyID string) ([]models.Match, error) {
	listing, err := e.store.Supply.FindByID(tx, supplyID)
	if err != nil {
		return nil, err
	}
	if !listing.IsActive {
		return nil, nil
	}

	var created []models.Match
	for _, kind := range []models.DemandKind{models.DemandRFQ, models.DemandOfftakeBaseline} {
		demands, err := e.store.Demands.FindActiveByMaterial(tx, kind, listing.MaterialType, listing.MaterialGrade)
		if err != nil {
			return created, err
		}
		for _, d := range demands {
			m, ok, err := e.consider(tx, Candidate{Demand: d, Supply: listing})
			if err != nil {
				return created, err
			}
			if ok {
				created = append(created, *m)
			}
		}
	}
	return created, nil
}

// consider pontua o candidato e grava o match quando passa do limiar.
func (e *Engine) consider(tx *gorm.DB, c Candidate) (*models.Match, bool, error) {
	res := e.scorer.Score(c)
	if !e.scorer.Passes(res) {
		return nil, false, nil
	}

	m := &models.Match{
		DemandKind:      c.Demand.Kind,
		DemandID:        c.Demand.ID(),
		SupplyListingID: c.Supply.ID,
		ManufacturerID:  c.Demand.Terms().ManufacturerID,
		SupplierID:      c.Supply.SupplierID,
		MatchScore:      res.Score,
		MatchReasons:    res.Reasons,
		Status:          models.MatchOpen,
	}
	inserted, err := e.store.Matches.CreateIfAbsent(tx, m)
	if err != nil || !inserted {
		return nil, false, err
	}

	metrics.MatchesCreatedTotal.WithLabelValues(string(m.DemandKind)).Inc()
	return m, true, nil
}

// Announce publica match.created para as duas partes de cada match.
func (e *Engine) Announce(ctx context.Context, matches []models.Match) {
	events := make([]notify.Event, 0, len(matches))
	for _, m := range matches {
		ev := notify.NewEvent(notify.EventMatchCreated, m.ID, "", m.ManufacturerID, m.SupplierID)
		ev.Attributes = map[string]string{
			"demand_kind": string(m.DemandKind),
			"demand_id":   m.DemandID,
			"supply_id":   m.SupplyListingID,
		}
		events = append(events, ev)
	}
	notify.Dispatch(ctx, e.publisher, e.logger, events...)
}

// RematchAll reexecuta o matching para todas as ofertas ativas, uma
// transação por oferta. Como pares existentes são ignorados, uma execução
// interrompida pode ser simplesmente repetida.
func (e *Engine) RematchAll(ctx context.Context) (int, error) {
	listings, err := e.store.Supply.ListActive(e.db.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	total := 0
	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		created, err := e.Run(ctx, SupplyTrigger(l.ID))
		if err != nil {
			return total, err
		}
		total += len(created)
	}
	return total, nil
}
