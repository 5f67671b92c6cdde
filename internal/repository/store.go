package repository

// Store agrupa os repositórios do Record Store para injeção nos serviços.
type Store struct {
	Users        UserRepository
	Demands      DemandRepository
	Supply       SupplyRepository
	Matches      MatchRepository
	Contacts     ContactRepository
	Negotiations NegotiationRepository
	Agreements   AgreementRepository
}

// NewStore devolve um Store com as implementações gorm.
func NewStore() *Store {
	return &Store{
		Users:        NewUserRepository(),
		Demands:      NewDemandRepository(),
		Supply:       NewSupplyRepository(),
		Matches:      NewMatchRepository(),
		Contacts:     NewContactRepository(),
		Negotiations: NewNegotiationRepository(),
		Agreements:   NewAgreementRepository(),
	}
}
