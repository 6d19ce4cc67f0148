package database

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MasterOfPuppets/wradio/internal/config"
	"github.com/MasterOfPuppets/wradio/internal/models"
)

type Client struct {
	DB *gorm.DB
}

func New(cfg *config.Config) *Client {
	db, err := gorm.Open(sqlite.Open(cfg.Database.Path+"?_journal_mode=WAL"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("❌ Failed to open station library: %v", err)
	}

	// sqlite tolerates exactly one writer
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	log.Println("✅ Station Library Opened")

	return &Client{DB: db}
}

// NewInMemory opens a throwaway RAM database, used by tests.
func NewInMemory() *Client {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("in-memory sqlite: %v", err)
	}
	return &Client{DB: db}
}

// AutoMigrate creates/updates tables based on struct definitions
func (c *Client) AutoMigrate() {
	err := c.DB.AutoMigrate(
		&models.Station{},
		&models.PlayerPrefs{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("✅ Migrations Complete")
}
