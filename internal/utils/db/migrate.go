package db

import (
	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/models"
)

// Migrate cria ou atualiza as tabelas de todos os modelos persistidos.
func Migrate(database *gorm.DB) error {
	err := database.AutoMigrate(
		&models.User{},
		&models.RFQ{},
		&models.OfftakeBaseline{},
		&models.SupplyListing{},
		&models.Match{},
		&models.ContactRequest{},
		&models.Negotiation{},
		&models.Agreement{},
		&models.RefreshToken{},
	)
	return eris.Wrap(err, "db: auto migrate")
}
