// Package db abre a conexão gorm do Record Store e aplica as migrações.
package db

import (
	"time"

	"github.com/rotisserie/eris"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/KromaEnergia/api-marketplace/internal/config"
)

// ConnectDataBase abre o banco configurado. TranslateError fica ligado para
// que violações de unicidade cheguem como gorm.ErrDuplicatedKey.
func ConnectDataBase(cfg config.StoreConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg))
	case "postgres":
		dsn, err := postgresDSN(cfg)
		if err != nil {
			return nil, err
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, eris.Errorf("db: unsupported driver %q", cfg.Driver)
	}

	database, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, eris.Wrap(err, "db: open")
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, eris.Wrap(err, "db: underlying sql.DB")
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return database, nil
}

// Close fecha o pool de conexões subjacente.
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return eris.Wrap(err, "db: underlying sql.DB")
	}
	return sqlDB.Close()
}
