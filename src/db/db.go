package db

import (
	"aworld/src/config"
	"aworld/src/models"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var db *gorm.DB

func GetDb() *gorm.DB {
	if db != nil {
		return db
	}
	var (
		_db *gorm.DB
		err error
	)
	if os.Getenv("DATABASE_DRIVER") == "sqlite" {
		_db, err = OpenSQLite(config.EnvOr("DATABASE_PATH", "aworld.db"))
	} else {
		_db, err = gorm.Open(postgres.Open(config.GetDSN()), &gorm.Config{TranslateError: true})
	}
	if err != nil {
		log.Printf("Error connecting to database: %s\n", err.Error())
		panic(err)
	}
	sqlDB, err := _db.DB()
	if err != nil {
		log.Fatalf("Error establishing connection to database: %s\n", err.Error())
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	db = _db
	return _db
}

func NewDB(newdb *gorm.DB) {
	db = newdb
}

// OpenSQLite opens a sqlite database with unique violations translated to gorm.ErrDuplicatedKey.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
}

func Models() []any {
	return []any{
		&models.User{},
		&models.Invoice{},
		&models.Order{},
		&models.Quotation{},
		&models.QuotationItem{},
		&models.WebhookEvent{},
		&models.NumberSequence{},
	}
}

func Migrate(d *gorm.DB) error {
	return d.AutoMigrate(Models()...)
}
