// Package station owns the local station library and the merged remote
// search against the directory.
package station

import (
	"context"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MasterOfPuppets/wradio/internal/directory"
	"github.com/MasterOfPuppets/wradio/internal/models"
)

const searchLimit = 50

// DirectorySearcher is the slice of the directory client the repository
// needs. Tests substitute a fake.
type DirectorySearcher interface {
	Search(ctx context.Context, params directory.SearchParams) ([]directory.StationDTO, error)
}

type Repository struct {
	db     *gorm.DB
	remote DirectorySearcher

	mu     sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

func NewRepository(db *gorm.DB, remote DirectorySearcher) *Repository {
	return &Repository{
		db:     db,
		remote: remote,
		subs:   make(map[int]chan struct{}),
	}
}

// Get returns the station with the given uuid, or nil when it does not exist.
func (r *Repository) Get(uuid string) (*models.Station, error) {
	var st models.Station
	err := r.db.Where("uuid = ?", uuid).First(&st).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Save upserts by uuid.
func (r *Repository) Save(st models.Station) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		UpdateAll: true,
	}).Create(&st).Error
	if err != nil {
		return err
	}
	r.bump()
	return nil
}

func (r *Repository) Delete(st models.Station) error {
	if err := r.db.Delete(&models.Station{}, "uuid = ?", st.UUID).Error; err != nil {
		return err
	}
	r.bump()
	return nil
}

func (r *Repository) DeleteAll() error {
	if err := r.db.Where("1 = 1").Delete(&models.Station{}).Error; err != nil {
		return err
	}
	r.bump()
	return nil
}

// All returns every saved station, alphabetical.
func (r *Repository) All() ([]models.Station, error) {
	var out []models.Station
	err := r.db.Order("name COLLATE NOCASE ASC").Find(&out).Error
	return out, err
}

// ByHistory returns stations that have ever been played, most recent first.
func (r *Repository) ByHistory() ([]models.Station, error) {
	var out []models.Station
	err := r.db.Where("last_played IS NOT NULL").Order("last_played DESC").Find(&out).Error
	return out, err
}

// ByUsage returns stations with accrued listening time, most listened first.
func (r *Repository) ByUsage() ([]models.Station, error) {
	var out []models.Station
	err := r.db.Where("total_play_time > 0").Order("total_play_time DESC").Find(&out).Error
	return out, err
}

// WatchAll streams the alphabetical station list: one emission immediately,
// then one after every local write.
func (r *Repository) WatchAll(ctx context.Context) <-chan []models.Station {
	return r.watch(ctx, r.All)
}

func (r *Repository) WatchByHistory(ctx context.Context) <-chan []models.Station {
	return r.watch(ctx, r.ByHistory)
}

func (r *Repository) WatchByUsage(ctx context.Context) <-chan []models.Station {
	return r.watch(ctx, r.ByUsage)
}

func (r *Repository) watch(ctx context.Context, query func() ([]models.Station, error)) <-chan []models.Station {
	out := make(chan []models.Station, 1)

	bump := make(chan struct{}, 1)
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = bump
	r.mu.Unlock()

	emit := func() {
		list, err := query()
		if err != nil {
			return
		}
		// latest-wins, never block on a slow reader
		select {
		case out <- list:
		default:
			select {
			case <-out:
			default:
			}
			select {
			case out <- list:
			default:
			}
		}
	}

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
			close(out)
		}()

		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case <-bump:
				emit()
			}
		}
	}()

	return out
}

func (r *Repository) bump() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SearchRemote implements the smart search: the query is matched against
// station names AND against tags (genre), both capped at 50 results, merged
// and de-duplicated by uuid.
func (r *Repository) SearchRemote(ctx context.Context, query string) ([]models.Station, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	type result struct {
		dtos []directory.StationDTO
		err  error
	}

	nameCh := make(chan result, 1)
	tagCh := make(chan result, 1)

	go func() {
		dtos, err := r.remote.Search(ctx, directory.SearchParams{Name: query, Limit: searchLimit})
		nameCh <- result{dtos, err}
	}()
	go func() {
		dtos, err := r.remote.Search(ctx, directory.SearchParams{Tag: query, Limit: searchLimit})
		tagCh <- result{dtos, err}
	}()

	nameRes := <-nameCh
	tagRes := <-tagCh
	if nameRes.err != nil {
		return nil, nameRes.err
	}
	if tagRes.err != nil {
		return nil, tagRes.err
	}

	seen := make(map[string]bool)
	var merged []models.Station
	for _, dto := range append(nameRes.dtos, tagRes.dtos...) {
		if dto.UUID == "" || seen[dto.UUID] {
			continue
		}
		seen[dto.UUID] = true
		merged = append(merged, toDomain(dto))
	}
	return merged, nil
}

// toDomain converts a directory DTO into a fresh local record: usage
// statistics start at zero and names/tags are normalized here so imports and
// the explore view see identical data.
func toDomain(dto directory.StationDTO) models.Station {
	return models.Station{
		UUID:        dto.UUID,
		Name:        models.TruncateName(dto.Name),
		StreamURL:   dto.URL,
		StationLogo: dto.Favicon,
		CountryCode: dto.CountryCode,
		Homepage:    dto.Homepage,
		Codec:       dto.Codec,
		Bitrate:     dto.Bitrate,
		ClickCount:  dto.ClickCount,
		Votes:       dto.Votes,
		Tags:        models.NormalizeTags(dto.Tags),
	}
}
