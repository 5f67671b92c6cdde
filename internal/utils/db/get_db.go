package db

import (
	"fmt"
	"strings"

	"github.com/KromaEnergia/api-marketplace/internal/config"
)

func postgresDSN(cfg config.StoreConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	username, password, err := retrieveCredentials(cfg)
	if err != nil {
		return "", err
	}

	port := cfg.Port
	if port == 0 {
		port = 5432 // Default PostgreSQL port
	}
	var sslMode string
	if cfg.SSLDisable {
		sslMode = " sslmode=disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d%s",
		cfg.Host, username, password, cfg.Name, port, sslMode), nil
}

// sqliteDSN usa DSN ou Name como caminho do arquivo e liga as foreign keys.
func sqliteDSN(cfg config.StoreConfig) string {
	path := cfg.DSN
	if path == "" {
		path = cfg.Name
	}
	if path == "" {
		path = "marketplace.db"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}
