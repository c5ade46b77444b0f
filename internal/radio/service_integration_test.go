package radio

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestProcessSubmissionSettlesEndToEnd(t *testing.T) {
	service, db := newTestService(t, []string{"playlist-1", "play-1", "fame-1", "earn-1"}, 0.2)
	seedSettlementFixture(t, db)

	result, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.SubmissionID != "submission-1" {
		t.Fatalf("unexpected submission id %s", result.SubmissionID)
	}
	if result.ShowID != "show-low" {
		t.Fatalf("expected lowest-slot active show, got %s", result.ShowID)
	}
	if result.PlaylistID != "playlist-1" || result.PlayID != "play-1" {
		t.Fatalf("unexpected row ids %s / %s", result.PlaylistID, result.PlayID)
	}
	if !result.PlaylistCreated || result.TimesPlayed != 1 {
		t.Fatalf("expected fresh playlist entry with one play, got created=%v times=%d",
			result.PlaylistCreated, result.TimesPlayed)
	}
	if result.Listeners != 620 || result.HypeGained != 1 || result.StreamsBoost != 372 || result.SalesBoost != 9 {
		t.Fatalf("unexpected metrics %#v", result)
	}
	if !result.WeekStartDate.Equal(fixedWeekStart) {
		t.Fatalf("expected week start %v, got %v", fixedWeekStart, result.WeekStartDate)
	}
	if result.BandID == nil || *result.BandID != "band-1" {
		t.Fatalf("expected band-1 in summary, got %v", result.BandID)
	}

	var submission Submission
	if err := db.Where("submission_id = ?", "submission-1").Take(&submission).Error; err != nil {
		t.Fatalf("failed to reload submission: %v", err)
	}
	if submission.Status != SubmissionStatusAccepted {
		t.Fatalf("expected accepted status, got %s", submission.Status)
	}
	if submission.ReviewedAt == nil || !submission.ReviewedAt.Equal(fixedNow) {
		t.Fatalf("expected reviewed_at %v, got %v", fixedNow, submission.ReviewedAt)
	}
	if submission.RejectionReason != "" {
		t.Fatalf("expected rejection reason cleared, got %q", submission.RejectionReason)
	}

	var song Song
	if err := db.Where("song_id = ?", "song-1").Take(&song).Error; err != nil {
		t.Fatalf("failed to reload song: %v", err)
	}
	if song.Hype != 11 || song.TotalRadioPlays != 6 || song.Streams != 1372 || song.Revenue != 209 {
		t.Fatalf("unexpected song counters %#v", song)
	}
	if song.LastRadioPlay == nil || !song.LastRadioPlay.Equal(fixedNow) {
		t.Fatalf("expected last radio play %v, got %v", fixedNow, song.LastRadioPlay)
	}

	var band Band
	if err := db.Where("band_id = ?", "band-1").Take(&band).Error; err != nil {
		t.Fatalf("failed to reload band: %v", err)
	}
	if band.Fame != 2.1 {
		t.Fatalf("expected fame 2.1, got %v", band.Fame)
	}

	var play PlayRecord
	if err := db.Where("play_id = ?", "play-1").Take(&play).Error; err != nil {
		t.Fatalf("failed to reload play: %v", err)
	}
	if play.PlaylistID != "playlist-1" || play.ShowID != "show-low" || play.StationID != "station-1" {
		t.Fatalf("unexpected play references %#v", play)
	}
	if play.Listeners != 620 || play.HypeGained != 1 || play.StreamsBoost != 372 || play.SalesBoost != 9 {
		t.Fatalf("unexpected play metrics %#v", play)
	}

	var events []FameEvent
	if err := db.Find(&events).Error; err != nil {
		t.Fatalf("failed to load fame events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly one fame event, got %d", len(events))
	}
	if events[0].BandID != "band-1" || events[0].FameGained != 0.1 ||
		events[0].EventType != FameEventTypeRadioPlay ||
		events[0].StationID != "station-1" || events[0].StationName != "KXRA 98.5" ||
		events[0].PlayID != "play-1" {
		t.Fatalf("unexpected fame event %#v", events[0])
	}

	var earnings []EarningsEntry
	if err := db.Find(&earnings).Error; err != nil {
		t.Fatalf("failed to load earnings: %v", err)
	}
	if len(earnings) != 1 {
		t.Fatalf("expected exactly one earnings entry, got %d", len(earnings))
	}
	if earnings[0].Amount != 9 || earnings[0].Source != EarningsSourceRadioPlay ||
		earnings[0].BandID != "band-1" || earnings[0].SongID != "song-1" || earnings[0].PlayID != "play-1" {
		t.Fatalf("unexpected earnings entry %#v", earnings[0])
	}
}

func TestProcessSubmissionAggregatesWeeklyPlays(t *testing.T) {
	service, db := newTestService(t,
		[]string{"playlist-1", "play-1", "fame-1", "earn-1", "playlist-2", "play-2", "fame-2", "earn-2"}, 0.2)
	seedSettlementFixture(t, db)
	seedPendingSubmission(t, db, "submission-2", "song-1", "station-1")

	if _, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-1")); err != nil {
		t.Fatalf("first settlement failed: %v", err)
	}
	second, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-2"))
	if err != nil {
		t.Fatalf("second settlement failed: %v", err)
	}

	if second.PlaylistCreated {
		t.Fatalf("expected second settlement to reuse the playlist entry")
	}
	if second.PlaylistID != "playlist-1" {
		t.Fatalf("expected reuse of playlist-1, got %s", second.PlaylistID)
	}
	if second.TimesPlayed != 2 {
		t.Fatalf("expected times played 2, got %d", second.TimesPlayed)
	}

	var playlistCount int64
	if err := db.Model(&PlaylistEntry{}).Count(&playlistCount).Error; err != nil {
		t.Fatalf("failed to count playlist entries: %v", err)
	}
	if playlistCount != 1 {
		t.Fatalf("expected a single playlist row, got %d", playlistCount)
	}

	var playCount int64
	if err := db.Model(&PlayRecord{}).Where("playlist_id = ?", "playlist-1").Count(&playCount).Error; err != nil {
		t.Fatalf("failed to count plays: %v", err)
	}
	if playCount != 2 {
		t.Fatalf("expected two play rows referencing the aggregate, got %d", playCount)
	}

	var entry PlaylistEntry
	if err := db.Where("playlist_id = ?", "playlist-1").Take(&entry).Error; err != nil {
		t.Fatalf("failed to reload playlist entry: %v", err)
	}
	if entry.TimesPlayed != 2 || !entry.IsActive {
		t.Fatalf("unexpected aggregate state %#v", entry)
	}
}

func TestProcessSubmissionHonorsStoredWeek(t *testing.T) {
	service, db := newTestService(t, []string{"playlist-1", "play-1", "fame-1", "earn-1"}, 0.2)
	seedSettlementFixture(t, db)

	storedWeek := time.Date(2025, 12, 10, 8, 0, 0, 0, time.UTC)
	if err := db.Model(&Submission{}).
		Where("submission_id = ?", "submission-1").
		Update("week_submitted", storedWeek).Error; err != nil {
		t.Fatalf("failed to backdate submission: %v", err)
	}

	result, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedWeek := time.Date(2025, 12, 7, 0, 0, 0, 0, time.UTC)
	if !result.WeekStartDate.Equal(expectedWeek) {
		t.Fatalf("expected backdated week %v, got %v", expectedWeek, result.WeekStartDate)
	}

	var entry PlaylistEntry
	if err := db.Where("playlist_id = ?", "playlist-1").Take(&entry).Error; err != nil {
		t.Fatalf("failed to reload playlist entry: %v", err)
	}
	if !entry.WeekStartDate.UTC().Equal(expectedWeek) {
		t.Fatalf("expected stored week on aggregate, got %v", entry.WeekStartDate)
	}
}

func TestProcessSubmissionWithoutBandSkipsCascade(t *testing.T) {
	service, db := newTestService(t, []string{"playlist-1", "play-1"}, 0.2)
	seedSettlementFixture(t, db)
	if err := db.Create(&Song{SongID: "song-unsigned", Title: "Unsigned Demo", Streams: 50}).Error; err != nil {
		t.Fatalf("failed to seed bandless song: %v", err)
	}
	seedPendingSubmission(t, db, "submission-unsigned", "song-unsigned", "station-1")

	result, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-unsigned"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BandID != nil {
		t.Fatalf("expected nil band id in summary, got %v", *result.BandID)
	}

	var song Song
	if err := db.Where("song_id = ?", "song-unsigned").Take(&song).Error; err != nil {
		t.Fatalf("failed to reload song: %v", err)
	}
	if song.TotalRadioPlays != 1 || song.Streams != 50+372 {
		t.Fatalf("expected song metrics applied without a band, got %#v", song)
	}

	var submission Submission
	if err := db.Where("submission_id = ?", "submission-unsigned").Take(&submission).Error; err != nil {
		t.Fatalf("failed to reload submission: %v", err)
	}
	if submission.Status != SubmissionStatusAccepted {
		t.Fatalf("expected accepted status, got %s", submission.Status)
	}

	var fameCount, earningsCount int64
	if err := db.Model(&FameEvent{}).Count(&fameCount).Error; err != nil {
		t.Fatalf("failed to count fame events: %v", err)
	}
	if err := db.Model(&EarningsEntry{}).Count(&earningsCount).Error; err != nil {
		t.Fatalf("failed to count earnings: %v", err)
	}
	if fameCount != 0 || earningsCount != 0 {
		t.Fatalf("expected no cascade rows, got %d fame events and %d earnings", fameCount, earningsCount)
	}
}

func TestProcessSubmissionFailsWhenBandMissing(t *testing.T) {
	service, db := newTestService(t, []string{"playlist-1", "play-1", "fame-1", "earn-1"}, 0.2)
	seedSettlementFixture(t, db)
	if err := db.Model(&Song{}).
		Where("song_id = ?", "song-1").
		Update("band_id", "band-ghost").Error; err != nil {
		t.Fatalf("failed to dangle band reference: %v", err)
	}

	before := captureStore(t, db)

	_, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-1"))
	if !errors.Is(err, ErrBandNotFound) {
		t.Fatalf("expected band-not-found error, got %v", err)
	}

	after := captureStore(t, db)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("expected store unchanged after integrity failure\nbefore: %#v\nafter: %#v", before, after)
	}
}

func TestProcessSubmissionGuardsReviewedSubmissions(t *testing.T) {
	for _, status := range []SubmissionStatus{SubmissionStatusAccepted, SubmissionStatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			service, db := newTestService(t, []string{"playlist-1", "play-1", "fame-1", "earn-1"}, 0.2)
			seedSettlementFixture(t, db)
			if err := db.Model(&Submission{}).
				Where("submission_id = ?", "submission-1").
				Update("status", status).Error; err != nil {
				t.Fatalf("failed to mark submission reviewed: %v", err)
			}

			before := captureStore(t, db)

			_, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-1"))
			if !errors.Is(err, ErrAlreadyReviewed) {
				t.Fatalf("expected already-reviewed error, got %v", err)
			}

			after := captureStore(t, db)
			if !reflect.DeepEqual(before, after) {
				t.Fatalf("expected store unchanged after guard rejection")
			}
		})
	}
}

func TestProcessSubmissionNotFoundErrors(t *testing.T) {
	t.Run("missing-submission", func(t *testing.T) {
		service, db := newTestService(t, nil, 0.2)
		seedSettlementFixture(t, db)
		_, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-ghost"))
		if !errors.Is(err, ErrSubmissionNotFound) {
			t.Fatalf("expected submission-not-found, got %v", err)
		}
	})

	t.Run("missing-song", func(t *testing.T) {
		service, db := newTestService(t, nil, 0.2)
		seedSettlementFixture(t, db)
		seedPendingSubmission(t, db, "submission-x", "song-ghost", "station-1")
		_, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-x"))
		if !errors.Is(err, ErrSongNotFound) {
			t.Fatalf("expected song-not-found, got %v", err)
		}
	})

	t.Run("missing-station", func(t *testing.T) {
		service, db := newTestService(t, nil, 0.2)
		seedSettlementFixture(t, db)
		seedPendingSubmission(t, db, "submission-x", "song-1", "station-ghost")
		_, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-x"))
		if !errors.Is(err, ErrStationNotFound) {
			t.Fatalf("expected station-not-found, got %v", err)
		}
	})

	t.Run("no-active-show", func(t *testing.T) {
		service, db := newTestService(t, nil, 0.2)
		seedSettlementFixture(t, db)
		if err := db.Model(&Show{}).
			Where("station_id = ?", "station-1").
			Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate shows: %v", err)
		}
		_, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-1"))
		if !errors.Is(err, ErrNoActiveShow) {
			t.Fatalf("expected no-active-show, got %v", err)
		}
	})
}

var errSyntheticFailure = errors.New("synthetic failure")

func TestProcessSubmissionRollsBackAtEveryStep(t *testing.T) {
	steps := []pipelineStep{
		stepAcceptSubmission,
		stepPlaylistUpsert,
		stepPlayLog,
		stepSongUpdate,
		stepBandUpdate,
		stepFameEvent,
		stepEarningsEntry,
	}

	for _, failAt := range steps {
		t.Run(string(failAt), func(t *testing.T) {
			service, db := newTestService(t, []string{"playlist-1", "play-1", "fame-1", "earn-1"}, 0.2)
			seedSettlementFixture(t, db)

			before := captureStore(t, db)

			service.stepHook = func(step pipelineStep) error {
				if step == failAt {
					return errSyntheticFailure
				}
				return nil
			}

			_, err := service.ProcessSubmission(context.Background(), mustSubmissionID(t, "submission-1"))
			if !errors.Is(err, errSyntheticFailure) {
				t.Fatalf("expected injected failure to propagate, got %v", err)
			}

			after := captureStore(t, db)
			if !reflect.DeepEqual(before, after) {
				t.Fatalf("expected store unchanged after failure at %s\nbefore: %#v\nafter: %#v",
					failAt, before, after)
			}
		})
	}
}
