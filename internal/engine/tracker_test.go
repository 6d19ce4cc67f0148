package engine

import (
	"fmt"
	"testing"
	"time"

	database "github.com/MasterOfPuppets/wradio/internal/db"
	"github.com/MasterOfPuppets/wradio/internal/models"
	"github.com/MasterOfPuppets/wradio/internal/station"
)

// fakeClock lets tests script session durations.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setupTracker(t *testing.T, uuids ...string) (*Tracker, *station.Repository, *fakeClock) {
	t.Helper()

	db := database.NewInMemory()
	db.AutoMigrate()

	repo := station.NewRepository(db.DB, nil)
	for i, id := range uuids {
		err := repo.Save(models.Station{
			UUID:      id,
			Name:      fmt.Sprintf("Station %d", i),
			StreamURL: fmt.Sprintf("http://stream.example/%d", i),
		})
		if err != nil {
			t.Fatalf("seed station: %v", err)
		}
	}

	clock := &fakeClock{t: time.UnixMilli(0)}
	tracker := NewTracker(repo)
	tracker.now = clock.now
	return tracker, repo, clock
}

func playTime(t *testing.T, repo *station.Repository, uuid string) (int64, *int64) {
	t.Helper()
	st, err := repo.Get(uuid)
	if err != nil {
		t.Fatalf("get %s: %v", uuid, err)
	}
	if st == nil {
		t.Fatalf("station %s missing", uuid)
	}
	return st.TotalPlayTime, st.LastPlayed
}

func TestShortSessionDiscarded(t *testing.T) {
	tracker, repo, clock := setupTracker(t, "abc")

	tracker.HandleItemTransition("abc")
	tracker.HandlePlayingChanged(true)
	clock.advance(59999 * time.Millisecond)
	tracker.HandlePlayingChanged(false)
	tracker.wg.Wait()

	total, lastPlayed := playTime(t, repo, "abc")
	if total != 0 {
		t.Errorf("totalPlayTime = %d, want 0 for sub-threshold session", total)
	}
	if lastPlayed != nil {
		t.Errorf("lastPlayed = %v, want nil", *lastPlayed)
	}
}

func TestSessionRoundsHalfUp(t *testing.T) {
	tracker, repo, clock := setupTracker(t, "abc")

	// 95s -> 95000/60000 = 1.583 -> 2 minutes
	tracker.HandleItemTransition("abc")
	tracker.HandlePlayingChanged(true)
	clock.advance(95 * time.Second)
	tracker.HandlePlayingChanged(false)
	tracker.wg.Wait()

	total, lastPlayed := playTime(t, repo, "abc")
	if total != 2 {
		t.Errorf("totalPlayTime = %d, want 2", total)
	}
	if lastPlayed == nil || *lastPlayed != 95000 {
		t.Errorf("lastPlayed = %v, want 95000 (stop timestamp)", lastPlayed)
	}
}

func TestExactThresholdCounts(t *testing.T) {
	tracker, repo, clock := setupTracker(t, "abc")

	tracker.HandleItemTransition("abc")
	tracker.HandlePlayingChanged(true)
	clock.advance(60 * time.Second)
	tracker.HandlePlayingChanged(false)
	tracker.wg.Wait()

	total, _ := playTime(t, repo, "abc")
	if total != 1 {
		t.Errorf("totalPlayTime = %d, want 1 at exactly 60s", total)
	}
}

func TestTrackSkipClosesAndReopens(t *testing.T) {
	tracker, repo, clock := setupTracker(t, "aaa", "bbb")

	// Play A for 150s, then skip to B while still playing.
	tracker.HandleItemTransition("aaa")
	tracker.HandlePlayingChanged(true)
	clock.advance(150 * time.Second)
	tracker.HandleItemTransition("bbb")

	// B plays only 30s before stop: below threshold, nothing recorded.
	clock.advance(30 * time.Second)
	tracker.HandlePlayingChanged(false)
	tracker.wg.Wait()

	totalA, _ := playTime(t, repo, "aaa")
	if totalA != 3 {
		t.Errorf("A totalPlayTime = %d, want 3 (150s, half-up)", totalA)
	}
	totalB, _ := playTime(t, repo, "bbb")
	if totalB != 0 {
		t.Errorf("B totalPlayTime = %d, want 0: no time may be attributed before the skip", totalB)
	}
}

func TestDeletedStationNeverRecreated(t *testing.T) {
	tracker, repo, clock := setupTracker(t, "gone")

	tracker.HandleItemTransition("gone")
	tracker.HandlePlayingChanged(true)
	clock.advance(5 * time.Minute)

	// Deleted mid-session.
	if err := repo.Delete(models.Station{UUID: "gone"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	tracker.HandlePlayingChanged(false)
	tracker.wg.Wait()

	st, err := repo.Get("gone")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st != nil {
		t.Errorf("station resurrected by stats write: %+v", st)
	}
}

func TestNoUUIDNoAccounting(t *testing.T) {
	tracker, _, clock := setupTracker(t)

	// Item without an attached uuid: tracker stays effectively idle.
	tracker.HandleItemTransition("")
	tracker.HandlePlayingChanged(true)
	clock.advance(10 * time.Minute)
	tracker.HandlePlayingChanged(false)
	tracker.wg.Wait()
}

func TestCloseBlocksNewWork(t *testing.T) {
	tracker, repo, clock := setupTracker(t, "abc")

	tracker.Close()

	tracker.HandleItemTransition("abc")
	tracker.HandlePlayingChanged(true)
	clock.advance(5 * time.Minute)
	tracker.HandlePlayingChanged(false)
	tracker.wg.Wait()

	total, _ := playTime(t, repo, "abc")
	if total != 0 {
		t.Errorf("totalPlayTime = %d, want 0 after Close", total)
	}
}
