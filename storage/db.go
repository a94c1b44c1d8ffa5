package storage

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mindhub/config"
	"mindhub/models"
)

// ErrNotFound wird zurückgegeben, wenn ein Datensatz nicht existiert.
var ErrNotFound = errors.New("record not found")

// Open verbindet sich mit der PostgreSQL-Datenbank aus der Konfiguration.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// Migrate legt alle Tabellen an bzw. aktualisiert sie.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}
