package disclosure

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/apperr"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/repository"
)

const (
	AnonymousManufacturer = "Anonymous Manufacturer"
	AnonymousSupplier     = "Anonymous Supplier"
)

// Party é o bloco de identidade exposto nas leituras. Quando Anonymized é
// true, CompanyName traz o rótulo fixo e ID vem vazio.
type Party struct {
	ID          string      `json:"id,omitempty"`
	Role        models.Role `json:"role"`
	CompanyName string      `json:"companyName"`
	Anonymized  bool        `json:"anonymized"`
}

// ShouldRedact aplica a regra de anonimização: o visitante não é o dono, o
// registro é anônimo e não existe opt-in mútuo entre eles.
func ShouldRedact(viewerID, ownerID string, anonymous, mutualOptIn bool) bool {
	return viewerID != ownerID && anonymous && !mutualOptIn
}

func anonymousLabel(role models.Role) string {
	if role == models.RoleSupplier {
		return AnonymousSupplier
	}
	return AnonymousManufacturer
}

func partyFor(owner *models.User, ownerID string, role models.Role, redact bool) Party {
	if redact {
		return Party{Role: role, CompanyName: anonymousLabel(role), Anonymized: true}
	}
	p := Party{ID: ownerID, Role: role}
	if owner != nil {
		p.CompanyName = owner.CompanyName
	}
	return p
}

type RFQView struct {
	models.RFQ
	Party Party `json:"party"`
}

type OfftakeView struct {
	models.OfftakeBaseline
	Party Party `json:"party"`
}

type SupplyView struct {
	models.SupplyListing
	Party Party `json:"party"`
}

// disclosedSet guarda, para um visitante, quais registros pertencem a matches
// com opt-in mútuo em que ele participa.
type disclosedSet struct {
	demands  map[string]bool
	supplies map[string]bool
}

func demandKey(kind models.DemandKind, id string) string { return string(kind) + ":" + id }

func (s *Service) disclosedTo(tx *gorm.DB, viewerID string) (disclosedSet, error) {
	d := disclosedSet{demands: map[string]bool{}, supplies: map[string]bool{}}
	ids, err := s.store.Contacts.MutualOptInMatchIDs(tx, viewerID)
	if err != nil {
		return d, err
	}
	matches, err := s.store.Matches.FindByIDs(tx, ids)
	if err != nil {
		return d, err
	}
	for _, m := range matches {
		d.demands[demandKey(m.DemandKind, m.DemandID)] = true
		d.supplies[m.SupplyListingID] = true
	}
	return d, nil
}

// ListRFQs devolve os RFQs, mais recentes primeiro, com o dono anonimizado
// quando aplicável. mine restringe aos RFQs do próprio visitante.
func (s *Service) ListRFQs(ctx context.Context, viewer models.Identity, mine bool) ([]RFQView, error) {
	if !viewer.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	tx := s.db.WithContext(ctx)

	list, err := s.store.Demands.ListRFQs(tx, ownerFilter(viewer, mine))
	if err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(list))
	for _, r := range list {
		owners = append(owners, r.ManufacturerID)
	}
	users, disc, err := s.viewContext(tx, viewer, owners)
	if err != nil {
		return nil, err
	}

	out := make([]RFQView, 0, len(list))
	for _, r := range list {
		redact := ShouldRedact(viewer.UserID, r.ManufacturerID, r.IsAnonymous, disc.demands[demandKey(models.DemandRFQ, r.ID)])
		v := RFQView{RFQ: r, Party: partyFor(users[r.ManufacturerID], r.ManufacturerID, models.RoleManufacturer, redact)}
		if redact {
			v.ManufacturerID = ""
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) ListOfftakes(ctx context.Context, viewer models.Identity, mine bool) ([]OfftakeView, error) {
	if !viewer.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	tx := s.db.WithContext(ctx)

	list, err := s.store.Demands.ListOfftakes(tx, ownerFilter(viewer, mine))
	if err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(list))
	for _, o := range list {
		owners = append(owners, o.ManufacturerID)
	}
	users, disc, err := s.viewContext(tx, viewer, owners)
	if err != nil {
		return nil, err
	}

	out := make([]OfftakeView, 0, len(list))
	for _, o := range list {
		redact := ShouldRedact(viewer.UserID, o.ManufacturerID, o.IsAnonymous, disc.demands[demandKey(models.DemandOfftakeBaseline, o.ID)])
		v := OfftakeView{OfftakeBaseline: o, Party: partyFor(users[o.ManufacturerID], o.ManufacturerID, models.RoleManufacturer, redact)}
		if redact {
			v.ManufacturerID = ""
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) ListSupply(ctx context.Context, viewer models.Identity, mine bool) ([]SupplyView, error) {
	if !viewer.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	tx := s.db.WithContext(ctx)

	list, err := s.store.Supply.List(tx, ownerFilter(viewer, mine))
	if err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(list))
	for _, l := range list {
		owners = append(owners, l.SupplierID)
	}
	users, disc, err := s.viewContext(tx, viewer, owners)
	if err != nil {
		return nil, err
	}

	out := make([]SupplyView, 0, len(list))
	for _, l := range list {
		redact := ShouldRedact(viewer.UserID, l.SupplierID, l.IsAnonymous, disc.supplies[l.ID])
		v := SupplyView{SupplyListing: l, Party: partyFor(users[l.SupplierID], l.SupplierID, models.RoleSupplier, redact)}
		if redact {
			v.SupplierID = ""
		}
		out = append(out, v)
	}
	return out, nil
}

func ownerFilter(viewer models.Identity, mine bool) repository.ListFilter {
	if mine {
		return repository.ListFilter{OwnerID: viewer.UserID}
	}
	return repository.ListFilter{}
}

func (s *Service) viewContext(tx *gorm.DB, viewer models.Identity, owners []string) (map[string]*models.User, disclosedSet, error) {
	users, err := s.store.Users.FindByIDs(tx, owners)
	if err != nil {
		return nil, disclosedSet{}, err
	}
	disc, err := s.disclosedTo(tx, viewer.UserID)
	if err != nil {
		return nil, disclosedSet{}, err
	}
	return users, disc, nil
}

type DemandSummary struct {
	Kind             models.DemandKind `json:"kind"`
	ID               string            `json:"id"`
	MaterialType     string            `json:"materialType"`
	MaterialGrade    string            `json:"materialGrade"`
	Quantity         float64           `json:"quantity"`
	Unit             string            `json:"unit"`
	Incoterms        string            `json:"incoterms"`
	DeliveryLocation string            `json:"deliveryLocation"`
	DeliverySchedule string            `json:"deliverySchedule"`
	TargetPrice      *float64          `json:"targetPrice,omitempty"`
}

type SupplySummary struct {
	ID               string  `json:"id"`
	MaterialType     string  `json:"materialType"`
	MaterialGrade    string  `json:"materialGrade"`
	Quality          string  `json:"quality"`
	AvailableVolume  float64 `json:"availableVolume"`
	Unit             string  `json:"unit"`
	PricingStructure string  `json:"pricingStructure"`
}

// ContactState resume um pedido de contato do ponto de vista do visitante.
type ContactState struct {
	ID            string    `json:"id"`
	Direction     string    `json:"direction"`
	IsAccepted    bool      `json:"isAccepted"`
	IsMutualOptIn bool      `json:"isMutualOptIn"`
	CreatedAt     time.Time `json:"createdAt"`
}

const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

type MatchView struct {
	models.Match
	Demand          *DemandSummary `json:"demand,omitempty"`
	Supply          *SupplySummary `json:"supply,omitempty"`
	Manufacturer    Party          `json:"manufacturer"`
	Supplier        Party          `json:"supplier"`
	MutualOptIn     bool           `json:"mutualOptIn"`
	ContactRequests []ContactState `json:"contactRequests"`
}

// ListMatches devolve os matches em que o visitante é parte, por score
// decrescente. A identidade da contraparte só aparece após o opt-in mútuo
// ou quando o registro dela não é anônimo.
func (s *Service) ListMatches(ctx context.Context, viewer models.Identity) ([]MatchView, error) {
	if !viewer.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	tx := s.db.WithContext(ctx)

	matches, err := s.store.Matches.ListByParty(tx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []MatchView{}, nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	contacts, err := s.store.Contacts.ListByMatches(tx, ids)
	if err != nil {
		return nil, err
	}
	byMatch := make(map[string][]models.ContactRequest, len(matches))
	for _, c := range contacts {
		byMatch[c.MatchID] = append(byMatch[c.MatchID], c)
	}

	records, err := s.loadRecords(tx, matches)
	if err != nil {
		return nil, err
	}

	out := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		crs := byMatch[m.ID]
		v := MatchView{
			Match:           m,
			MutualOptIn:     anyMutual(crs),
			ContactRequests: contactStates(viewer.UserID, crs),
		}
		s.fillParties(&v, viewer.UserID, records)
		out = append(out, v)
	}
	return out, nil
}

// matchRecords são os registros e usuários referenciados por um conjunto de matches.
type matchRecords struct {
	demands  map[string]models.Demand
	supplies map[string]*models.SupplyListing
	users    map[string]*models.User
}

func (s *Service) loadRecords(tx *gorm.DB, matches []models.Match) (matchRecords, error) {
	rec := matchRecords{
		demands:  map[string]models.Demand{},
		supplies: map[string]*models.SupplyListing{},
	}
	userIDs := make([]string, 0, 2*len(matches))
	for _, m := range matches {
		userIDs = append(userIDs, m.ManufacturerID, m.SupplierID)

		key := demandKey(m.DemandKind, m.DemandID)
		if _, ok := rec.demands[key]; !ok && m.DemandKind.Valid() {
			d, err := s.store.Demands.Find(tx, m.DemandKind, m.DemandID)
			if err != nil && !apperr.Is(err, apperr.KindNotFound) {
				return rec, err
			}
			rec.demands[key] = d
		}
		if _, ok := rec.supplies[m.SupplyListingID]; !ok {
			l, err := s.store.Supply.FindByID(tx, m.SupplyListingID)
			if err != nil && !apperr.Is(err, apperr.KindNotFound) {
				return rec, err
			}
			rec.supplies[m.SupplyListingID] = l
		}
	}

	users, err := s.store.Users.FindByIDs(tx, userIDs)
	if err != nil {
		return rec, err
	}
	rec.users = users
	return rec, nil
}

func (s *Service) fillParties(v *MatchView, viewerID string, rec matchRecords) {
	demand := rec.demands[demandKey(v.DemandKind, v.DemandID)]
	demandAnonymous := true
	if demand.Resolved() {
		t := demand.Terms()
		demandAnonymous = t.IsAnonymous
		v.Demand = &DemandSummary{
			Kind:             demand.Kind,
			ID:               demand.ID(),
			MaterialType:     t.MaterialType,
			MaterialGrade:    t.MaterialGrade,
			Quantity:         t.Quantity,
			Unit:             t.Unit,
			Incoterms:        t.Incoterms,
			DeliveryLocation: t.DeliveryLocation,
			DeliverySchedule: t.DeliverySchedule,
			TargetPrice:      t.TargetPrice,
		}
	}

	supplyAnonymous := true
	if l := rec.supplies[v.SupplyListingID]; l != nil {
		supplyAnonymous = l.IsAnonymous
		v.Supply = &SupplySummary{
			ID:               l.ID,
			MaterialType:     l.MaterialType,
			MaterialGrade:    l.MaterialGrade,
			Quality:          l.Quality,
			AvailableVolume:  l.AvailableVolume,
			Unit:             l.Unit,
			PricingStructure: l.PricingStructure,
		}
	}

	redactMaker := ShouldRedact(viewerID, v.ManufacturerID, demandAnonymous, v.MutualOptIn)
	redactSeller := ShouldRedact(viewerID, v.SupplierID, supplyAnonymous, v.MutualOptIn)
	v.Manufacturer = partyFor(rec.users[v.ManufacturerID], v.ManufacturerID, models.RoleManufacturer, redactMaker)
	v.Supplier = partyFor(rec.users[v.SupplierID], v.SupplierID, models.RoleSupplier, redactSeller)
	if redactMaker {
		v.Match.ManufacturerID = ""
	}
	if redactSeller {
		v.Match.SupplierID = ""
	}
}

func contactStates(viewerID string, list []models.ContactRequest) []ContactState {
	out := make([]ContactState, 0, len(list))
	for _, c := range list {
		dir := DirectionIncoming
		if c.RequestedByID == viewerID {
			dir = DirectionOutgoing
		}
		out = append(out, ContactState{
			ID:            c.ID,
			Direction:     dir,
			IsAccepted:    c.IsAccepted,
			IsMutualOptIn: c.IsMutualOptIn,
			CreatedAt:     c.CreatedAt,
		})
	}
	return out
}

type ContactRequestView struct {
	ID            string     `json:"id"`
	MatchID       string     `json:"matchId"`
	Direction     string     `json:"direction"`
	Message       string     `json:"message,omitempty"`
	IsAccepted    bool       `json:"isAccepted"`
	IsMutualOptIn bool       `json:"isMutualOptIn"`
	AcceptedAt    *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	Counterparty  Party      `json:"counterparty"`
}

// ListContactRequests lista os pedidos enviados ou recebidos pelo visitante,
// mais recentes primeiro, com a contraparte anonimizada até o opt-in mútuo.
func (s *Service) ListContactRequests(ctx context.Context, viewer models.Identity) ([]ContactRequestView, error) {
	if !viewer.Authenticated() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	tx := s.db.WithContext(ctx)

	list, err := s.store.Contacts.ListByUser(tx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return []ContactRequestView{}, nil
	}

	seen := map[string]bool{}
	ids := make([]string, 0, len(list))
	for _, c := range list {
		if !seen[c.MatchID] {
			seen[c.MatchID] = true
			ids = append(ids, c.MatchID)
		}
	}
	matches, err := s.store.Matches.FindByIDs(tx, ids)
	if err != nil {
		return nil, err
	}
	mutual, err := s.store.Contacts.MutualOptInMatchIDs(tx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	mutualSet := make(map[string]bool, len(mutual))
	for _, id := range mutual {
		mutualSet[id] = true
	}

	records, err := s.loadRecords(tx, matches)
	if err != nil {
		return nil, err
	}
	views := make(map[string]MatchView, len(matches))
	for _, m := range matches {
		v := MatchView{Match: m, MutualOptIn: mutualSet[m.ID]}
		s.fillParties(&v, viewer.UserID, records)
		views[m.ID] = v
	}

	out := make([]ContactRequestView, 0, len(list))
	for _, c := range list {
		v := ContactRequestView{
			ID:            c.ID,
			MatchID:       c.MatchID,
			Direction:     DirectionIncoming,
			Message:       c.Message,
			IsAccepted:    c.IsAccepted,
			IsMutualOptIn: c.IsMutualOptIn,
			AcceptedAt:    c.AcceptedAt,
			CreatedAt:     c.CreatedAt,
		}
		if c.RequestedByID == viewer.UserID {
			v.Direction = DirectionOutgoing
		}
		if mv, ok := views[c.MatchID]; ok {
			if mv.ManufacturerID == viewer.UserID {
				v.Counterparty = mv.Supplier
			} else {
				v.Counterparty = mv.Manufacturer
			}
		}
		out = append(out, v)
	}
	return out, nil
}
