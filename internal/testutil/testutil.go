// Package testutil reúne helpers de teste: banco SQLite temporário e fábricas
// de registros.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KromaEnergia/api-marketplace/internal/config"
	"github.com/KromaEnergia/api-marketplace/internal/models"
	"github.com/KromaEnergia/api-marketplace/internal/utils/db"
)

// NewDB abre um SQLite migrado dentro de t.TempDir().
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.ConnectDataBase(config.StoreConfig{
		Driver: "sqlite",
		Name:   filepath.Join(t.TempDir(), "marketplace.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() { _ = db.Close(database) })
	return database
}

// Logger returns a no-op logger for services under test.
func Logger() *zap.Logger { return zap.NewNop() }

func CreateUser(t *testing.T, database *gorm.DB, role models.Role, company string) *models.User {
	t.Helper()
	u := &models.User{
		Email:        company + "-" + string(role) + "@example.com",
		PasswordHash: "x",
		Role:         role,
		CompanyName:  company,
		ContactName:  "Contact " + company,
	}
	require.NoError(t, database.Create(u).Error)
	return u
}

// RFQ devolve um RFQ ativo e anônimo, ainda não persistido.
func RFQ(manufacturerID, materialType, materialGrade string) *models.RFQ {
	return &models.RFQ{DemandTerms: terms(manufacturerID, materialType, materialGrade)}
}

// Offtake devolve um OfftakeBaseline ativo e anônimo, ainda não persistido.
func Offtake(manufacturerID, materialType, materialGrade string) *models.OfftakeBaseline {
	return &models.OfftakeBaseline{
		DemandTerms: terms(manufacturerID, materialType, materialGrade),
		Frequency:   "MONTHLY",
		StartDate:   time.Now().UTC(),
	}
}

// Supply devolve um SupplyListing ativo e anônimo, ainda não persistido.
func Supply(supplierID, materialType, materialGrade string) *models.SupplyListing {
	return &models.SupplyListing{
		SupplierID:      supplierID,
		MaterialType:    materialType,
		MaterialGrade:   materialGrade,
		TechnicalSpecs:  "spec sheet",
		Quality:         "certified",
		AvailableVolume: 1000,
		Unit:            "t",
		IsActive:        true,
		IsAnonymous:     true,
	}
}

func terms(manufacturerID, materialType, materialGrade string) models.DemandTerms {
	return models.DemandTerms{
		ManufacturerID:   manufacturerID,
		MaterialType:     materialType,
		MaterialGrade:    materialGrade,
		TechnicalSpecs:   "spec sheet",
		Incoterms:        "FOB",
		DeliveryLocation: "Santos",
		DeliverySchedule: "monthly",
		Quantity:         100,
		Unit:             "t",
		IsActive:         true,
		IsAnonymous:      true,
	}
}

// Save persiste qualquer registro e falha o teste em caso de erro.
func Save(t *testing.T, database *gorm.DB, value any) {
	t.Helper()
	require.NoError(t, database.Create(value).Error)
}

// Marketplace é um cenário pronto: fabricante, fornecedor, RFQ, oferta e o
// match entre eles com status OPEN.
type Marketplace struct {
	Manufacturer *models.User
	Supplier     *models.User
	RFQ          *models.RFQ
	Supply       *models.SupplyListing
	Match        *models.Match
}

func NewMarketplace(t *testing.T, database *gorm.DB) *Marketplace {
	t.Helper()
	mp := &Marketplace{
		Manufacturer: CreateUser(t, database, models.RoleManufacturer, "Acme"),
		Supplier:     CreateUser(t, database, models.RoleSupplier, "Steelco"),
	}
	mp.RFQ = RFQ(mp.Manufacturer.ID, "Steel", "A36")
	Save(t, database, mp.RFQ)
	mp.Supply = Supply(mp.Supplier.ID, "Steel", "A36")
	Save(t, database, mp.Supply)

	mp.Match = &models.Match{
		DemandKind:      models.DemandRFQ,
		DemandID:        mp.RFQ.ID,
		SupplyListingID: mp.Supply.ID,
		ManufacturerID:  mp.Manufacturer.ID,
		SupplierID:      mp.Supplier.ID,
		MatchScore:      60,
		MatchReasons:    []string{"Material type matches", "Material grade matches"},
		Status:          models.MatchOpen,
	}
	Save(t, database, mp.Match)
	return mp
}

func (mp *Marketplace) ManufacturerIdentity() models.Identity {
	return models.Identity{UserID: mp.Manufacturer.ID, Role: models.RoleManufacturer}
}

func (mp *Marketplace) SupplierIdentity() models.Identity {
	return models.Identity{UserID: mp.Supplier.ID, Role: models.RoleSupplier}
}
