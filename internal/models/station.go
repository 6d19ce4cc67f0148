package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxNameLength bounds station names imported from the remote directory.
	MaxNameLength = 80
	// MaxTags bounds how many free-text tags a station keeps.
	MaxTags = 5
)

// TagList is stored as a single comma-joined column, the same shape the
// remote directory uses on the wire.
type TagList []string

func (t TagList) Value() (driver.Value, error) {
	return strings.Join(t, ","), nil
}

func (t *TagList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = nil
	case string:
		*t = splitTags(v)
	case []byte:
		*t = splitTags(string(v))
	default:
		return fmt.Errorf("unsupported tags column type %T", value)
	}
	return nil
}

func splitTags(raw string) TagList {
	if raw == "" {
		return nil
	}
	var out TagList
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeTags trims every entry, drops empties and caps the list at MaxTags.
func NormalizeTags(raw string) TagList {
	tags := splitTags(raw)
	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	return tags
}

// TruncateName trims surrounding whitespace and caps the name at
// MaxNameLength characters. The cap counts runes, not bytes: directory names
// are frequently non-ASCII and a byte slice could cut mid-rune.
func TruncateName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
	}
	return name
}

// Station is a saved internet radio stream plus its local usage statistics.
// UUID is the only stable join key against the remote directory; name and
// stream URL may legitimately diverge from the remote copy.
type Station struct {
	UUID        string  `gorm:"primaryKey" json:"uuid"`
	Name        string  `gorm:"index" json:"name"`
	StreamURL   string  `json:"stream_url"`
	StationLogo string  `json:"station_logo,omitempty"`
	CountryCode string  `gorm:"size:2" json:"country_code,omitempty"`
	Homepage    string  `json:"homepage,omitempty"`
	Codec       string  `json:"codec,omitempty"`
	Bitrate     int     `json:"bitrate"`
	ClickCount  int     `json:"click_count"`
	Votes       int     `json:"votes"`
	Tags        TagList `gorm:"type:text" json:"tags,omitempty"`

	// Usage statistics, owned by the listening tracker.
	LastPlayed    *int64 `gorm:"index" json:"last_played,omitempty"` // epoch millis
	TotalPlayTime int64  `gorm:"default:0;index" json:"total_play_time"` // whole minutes

	IsManuallyAdded bool `json:"is_manually_added"`
}
