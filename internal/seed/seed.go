package seed

import (
	"fmt"
	"time"

	"github.com/marqueelabs/airwave/backend/internal/radio"
	"gorm.io/gorm"
)

// Apply inserts a deterministic development fixture set: two stations with
// active shows, two bands, three songs (one without a band) and pending
// submissions ready for settlement. Re-running is a no-op for rows that
// already exist.
func Apply(db *gorm.DB, clock func() time.Time) error {
	if db == nil {
		return fmt.Errorf("database handle is required")
	}
	if clock == nil {
		clock = time.Now
	}
	now := clock().UTC()

	stations := []radio.Station{
		{StationID: "station-kxra", Name: "KXRA 98.5", ListenerBase: 42000},
		{StationID: "station-wvlt", Name: "WVLT The Vault", ListenerBase: 8500},
	}
	for _, station := range stations {
		if err := db.Where(radio.Station{StationID: station.StationID}).
			FirstOrCreate(&station).Error; err != nil {
			return fmt.Errorf("seed station %s: %w", station.StationID, err)
		}
	}

	shows := []radio.Show{
		{ShowID: "show-kxra-morning", StationID: "station-kxra", Name: "Morning Static", IsActive: true, TimeSlot: 1},
		{ShowID: "show-kxra-drive", StationID: "station-kxra", Name: "Drive Time Riot", IsActive: true, TimeSlot: 3},
		{ShowID: "show-wvlt-late", StationID: "station-wvlt", Name: "Late Shift", IsActive: true, TimeSlot: 5},
		{ShowID: "show-wvlt-retired", StationID: "station-wvlt", Name: "Static Archive", IsActive: false, TimeSlot: 2},
	}
	for _, show := range shows {
		if err := db.Where(radio.Show{ShowID: show.ShowID}).
			FirstOrCreate(&show).Error; err != nil {
			return fmt.Errorf("seed show %s: %w", show.ShowID, err)
		}
	}

	bands := []radio.Band{
		{BandID: "band-velvet-static", Name: "Velvet Static", Fame: 2.0},
		{BandID: "band-glass-harbor", Name: "Glass Harbor", Fame: 0.5},
	}
	for _, band := range bands {
		if err := db.Where(radio.Band{BandID: band.BandID}).
			FirstOrCreate(&band).Error; err != nil {
			return fmt.Errorf("seed band %s: %w", band.BandID, err)
		}
	}

	velvet := "band-velvet-static"
	glass := "band-glass-harbor"
	songs := []radio.Song{
		{SongID: "song-neon-tide", BandID: &velvet, Title: "Neon Tide", Hype: 10, TotalRadioPlays: 5, Streams: 1000, Revenue: 200},
		{SongID: "song-paper-moons", BandID: &glass, Title: "Paper Moons"},
		{SongID: "song-unsigned-demo", Title: "Unsigned Demo"},
	}
	for _, song := range songs {
		if err := db.Where(radio.Song{SongID: song.SongID}).
			FirstOrCreate(&song).Error; err != nil {
			return fmt.Errorf("seed song %s: %w", song.SongID, err)
		}
	}

	submissions := []radio.Submission{
		{SubmissionID: "submission-neon-kxra", SongID: "song-neon-tide", StationID: "station-kxra", Status: radio.SubmissionStatusPending, CreatedAt: now},
		{SubmissionID: "submission-paper-wvlt", SongID: "song-paper-moons", StationID: "station-wvlt", Status: radio.SubmissionStatusPending, CreatedAt: now},
		{SubmissionID: "submission-demo-kxra", SongID: "song-unsigned-demo", StationID: "station-kxra", Status: radio.SubmissionStatusPending, CreatedAt: now},
	}
	for _, submission := range submissions {
		if err := db.Where(radio.Submission{SubmissionID: submission.SubmissionID}).
			FirstOrCreate(&submission).Error; err != nil {
			return fmt.Errorf("seed submission %s: %w", submission.SubmissionID, err)
		}
	}

	return nil
}
