package radio

import (
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// fixedNow is a Wednesday; its settlement week starts Sunday 2026-01-04.
var fixedNow = time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)

var fixedWeekStart = time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)

type staticIDGenerator struct {
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	if g.index >= len(g.ids) {
		return "", errors.New("exhausted ids")
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

func mustSubmissionID(t *testing.T, value string) SubmissionID {
	t.Helper()
	id, err := NewSubmissionID(value)
	if err != nil {
		t.Fatalf("unexpected submission id error: %v", err)
	}
	return id
}

func newTestService(t *testing.T, ids []string, draw float64) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:airwave_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&Submission{}, &Station{}, &Show{}, &Song{}, &Band{},
		&PlaylistEntry{}, &PlayRecord{}, &FameEvent{}, &EarningsEntry{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	generator := &staticIDGenerator{ids: ids}
	clock := func() time.Time { return fixedNow }
	random := func() float64 { return draw }

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock,
		Random:     random,
		IDProvider: generator,
	})
	if err != nil {
		t.Fatalf("failed to construct radio service: %v", err)
	}

	return service, db
}

// seedSettlementFixture loads the standard scenario: station-1 with two active
// shows (show-low holds the lowest time slot) and one inactive show, band-1 at
// fame 2.0, song-1 owned by band-1 with established counters, and submission-1
// pending for song-1 on station-1.
func seedSettlementFixture(t *testing.T, db *gorm.DB) {
	t.Helper()

	bandID := "band-1"
	rows := []interface{}{
		&Station{StationID: "station-1", Name: "KXRA 98.5", ListenerBase: 1000},
		&Show{ShowID: "show-low", StationID: "station-1", Name: "Morning Static", IsActive: true, TimeSlot: 1},
		&Show{ShowID: "show-high", StationID: "station-1", Name: "Drive Time Riot", IsActive: true, TimeSlot: 3},
		&Show{ShowID: "show-inactive", StationID: "station-1", Name: "Static Archive", IsActive: false, TimeSlot: 0},
		&Band{BandID: bandID, Name: "Velvet Static", Fame: 2.0},
		&Song{SongID: "song-1", BandID: &bandID, Title: "Neon Tide", Hype: 10, TotalRadioPlays: 5, Streams: 1000, Revenue: 200},
		&Submission{SubmissionID: "submission-1", SongID: "song-1", StationID: "station-1", Status: SubmissionStatusPending},
	}
	for _, row := range rows {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("failed to seed fixture row %#v: %v", row, err)
		}
	}
}

func seedPendingSubmission(t *testing.T, db *gorm.DB, submissionID, songID, stationID string) {
	t.Helper()
	submission := Submission{
		SubmissionID: submissionID,
		SongID:       songID,
		StationID:    stationID,
		Status:       SubmissionStatusPending,
	}
	if err := db.Create(&submission).Error; err != nil {
		t.Fatalf("failed to seed submission %s: %v", submissionID, err)
	}
}

// storeSnapshot captures every table the pipeline can touch so tests can
// assert that a failed settlement left the store untouched.
type storeSnapshot struct {
	Submissions     []Submission
	Songs           []Song
	Bands           []Band
	PlaylistEntries []PlaylistEntry
	Plays           []PlayRecord
	FameEvents      []FameEvent
	Earnings        []EarningsEntry
}

func captureStore(t *testing.T, db *gorm.DB) storeSnapshot {
	t.Helper()
	var snapshot storeSnapshot
	queries := []struct {
		name string
		dest interface{}
	}{
		{"submissions", &snapshot.Submissions},
		{"songs", &snapshot.Songs},
		{"bands", &snapshot.Bands},
		{"playlists", &snapshot.PlaylistEntries},
		{"plays", &snapshot.Plays},
		{"fame events", &snapshot.FameEvents},
		{"earnings", &snapshot.Earnings},
	}
	for _, query := range queries {
		if err := db.Find(query.dest).Error; err != nil {
			t.Fatalf("failed to capture %s: %v", query.name, err)
		}
	}
	return snapshot
}
