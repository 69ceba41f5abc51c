package database

import (
	"fmt"

	"github.com/aquaticgg/krepo/config/configkey"
	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func CreateDatabase() (*gorm.DB, error) {
	return CreateDatabaseWithDSN(getDSN())
}

func CreateDatabaseWithDSN(connectionString string) (*gorm.DB, error) {
	return Open(postgres.Open(connectionString))
}

// Open opens the database through the given dialector and migrates the schema.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}
	if viper.GetBool(configkey.DebugMode) {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		logrus.Error(err)
		return nil, err
	}

	if err := Migrate(db); err != nil {
		logrus.Error(err)
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the tables for every persisted model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Account{},
		&models.DeployToken{},
		&models.RevokedToken{},
		&models.Repository{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	return nil
}

func CheckDBForErrorOrNoRows(db *gorm.DB) (*gorm.DB, bool) {
	if db.Error != nil {
		logrus.Error(db.Error)
		return db, false
	} else if db.RowsAffected == 0 {
		logrus.Trace("no rows found")
		return db, false
	}

	return db, true
}

func getDSN() string {
	database := viper.GetString(configkey.DatabaseDatabase)
	password := viper.GetString(configkey.DatabasePassword)
	sslMode := viper.GetString(configkey.DatabaseSSLMode)
	timezone := viper.GetString(configkey.DatabaseTimezone)
	host := viper.GetString(configkey.DatabaseHost)
	username := viper.GetString(configkey.DatabaseUsername)
	port := viper.GetInt(configkey.DatabasePort)

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		host, username, password, database, port, sslMode, timezone)

	return dsn
}
