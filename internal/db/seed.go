package database

import (
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MasterOfPuppets/wradio/internal/models"
)

// SeedStations gives a fresh library something to play. Runs only when the
// stations table is empty so user edits and deletes are never resurrected.
func SeedStations(db *gorm.DB) {
	var count int64
	db.Model(&models.Station{}).Count(&count)
	if count > 0 {
		return
	}

	starters := []models.Station{
		{
			UUID:        "96062a7b-0601-11e8-ae97-52543be04c81",
			Name:        "SomaFM Groove Salad",
			StreamURL:   "https://ice2.somafm.com/groovesalad-128-mp3",
			Homepage:    "https://somafm.com/groovesalad/",
			CountryCode: "US",
			Codec:       "MP3",
			Bitrate:     128,
			Tags:        models.TagList{"ambient", "chillout", "downtempo"},
		},
		{
			UUID:        "9617a958-0601-11e8-ae97-52543be04c81",
			Name:        "FIP",
			StreamURL:   "https://icecast.radiofrance.fr/fip-midfi.mp3",
			Homepage:    "https://www.radiofrance.fr/fip",
			CountryCode: "FR",
			Codec:       "MP3",
			Bitrate:     128,
			Tags:        models.TagList{"eclectic", "jazz", "world"},
		},
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&starters).Error; err != nil {
		log.Printf("⚠️ Seed failed: %v", err)
		return
	}
	log.Printf("🌱 Seeded %d starter stations", len(starters))
}
