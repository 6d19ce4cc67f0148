package models

// PlayerPrefs holds the player settings.
// There is ONE row in this table (ID=1).
type PlayerPrefs struct {
	ID            uint `gorm:"primaryKey" json:"-"`
	BufferSeconds int  `json:"buffer_seconds"`
}

// TableName overrides the default pluralization
func (PlayerPrefs) TableName() string {
	return "player_prefs"
}
