package radio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// Sentinel errors exposed for caller branching. Every one of them aborts the
// settlement with a full rollback.
var (
	// ErrSubmissionNotFound indicates the submission identifier resolved to no row.
	ErrSubmissionNotFound = errors.New("radio: submission not found")
	// ErrSongNotFound indicates the submission references a missing song.
	ErrSongNotFound = errors.New("radio: song not found")
	// ErrStationNotFound indicates the submission references a missing station.
	ErrStationNotFound = errors.New("radio: station not found")
	// ErrNoActiveShow indicates the target station has no active programming slot.
	ErrNoActiveShow = errors.New("radio: station has no active show")
	// ErrBandNotFound indicates the song references a band that does not exist.
	// This is a data-integrity failure, never skipped silently.
	ErrBandNotFound = errors.New("radio: referenced band not found")
	// ErrAlreadyReviewed guards against double-crediting fame and earnings.
	ErrAlreadyReviewed = errors.New("radio: submission already reviewed")
)

// ServiceError wraps a failure with a machine-readable operation code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the op.reason identifier for the failure.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew        = "radio.service.new"
	opProcessSubmission = "radio.process_submission"
	opListShowPlaylist  = "radio.list_show_playlist"
	opListSongPlays     = "radio.list_song_plays"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// famePerPlay is the fixed fame credit for one airing, applied with
// one-decimal rounding.
const famePerPlay = 0.1

func roundFame(value float64) float64 {
	return math.Round(value*10) / 10
}

// IDProvider issues identifiers for rows created by the pipeline.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig wires the settlement service dependencies. Clock and Random
// exist so tests can pin time and the metrics draw.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	Random     func() float64
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service settles accepted radio submissions across the submission, playlist,
// play log, song, band and earnings tables in one atomic unit of work.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	random     func() float64
	idProvider IDProvider
	logger     *zap.Logger

	// stepHook, when set by tests in this package, runs after each pipeline
	// write step; a returned error aborts and rolls back the settlement.
	stepHook func(step pipelineStep) error
}

// NewService validates the configuration and constructs the settlement service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	random := cfg.Random
	if random == nil {
		random = rand.Float64
	}

	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		random:     random,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

type pipelineStep string

const (
	stepAcceptSubmission pipelineStep = "accept_submission"
	stepPlaylistUpsert   pipelineStep = "playlist_upsert"
	stepPlayLog          pipelineStep = "play_log"
	stepSongUpdate       pipelineStep = "song_update"
	stepBandUpdate       pipelineStep = "band_update"
	stepFameEvent        pipelineStep = "fame_event"
	stepEarningsEntry    pipelineStep = "earnings_entry"
)

func (s *Service) checkpoint(step pipelineStep) error {
	if s.stepHook == nil {
		return nil
	}
	return s.stepHook(step)
}

// ProcessResult summarizes one committed settlement.
type ProcessResult struct {
	SubmissionID    string
	PlaylistID      string
	PlayID          string
	ShowID          string
	BandID          *string
	WeekStartDate   time.Time
	Listeners       int64
	HypeGained      int64
	StreamsBoost    int64
	SalesBoost      int64
	TimesPlayed     int64
	PlaylistCreated bool
}

// ProcessSubmission settles one pending submission: it transitions the
// submission to accepted, upserts the weekly playlist aggregate, appends an
// immutable play record, applies the derived metrics to the song and, when the
// song belongs to a band, credits fame and earnings. The writes happen in that
// order inside a single transaction; any failure leaves the store untouched.
func (s *Service) ProcessSubmission(ctx context.Context, submissionID SubmissionID) (ProcessResult, error) {
	if s.db == nil {
		s.logError(opProcessSubmission, "missing_database", errMissingDatabase)
		return ProcessResult{}, newServiceError(opProcessSubmission, "missing_database", errMissingDatabase)
	}

	now := s.clock().UTC()
	var result ProcessResult

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission Submission
		err := tx.Where("submission_id = ?", submissionID.String()).Take(&submission).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opProcessSubmission, "submission_not_found",
				fmt.Errorf("%w: %s", ErrSubmissionNotFound, submissionID.String()))
		}
		if err != nil {
			s.logError(opProcessSubmission, "submission_select_failed", err,
				zap.String("submission_id", submissionID.String()))
			return newServiceError(opProcessSubmission, "submission_select_failed", err)
		}

		if submission.Status != SubmissionStatusPending {
			return newServiceError(opProcessSubmission, "already_reviewed",
				fmt.Errorf("%w: status %s", ErrAlreadyReviewed, submission.Status))
		}

		var song Song
		err = tx.Where("song_id = ?", submission.SongID).Take(&song).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opProcessSubmission, "song_not_found",
				fmt.Errorf("%w: %s", ErrSongNotFound, submission.SongID))
		}
		if err != nil {
			s.logError(opProcessSubmission, "song_select_failed", err,
				zap.String("song_id", submission.SongID))
			return newServiceError(opProcessSubmission, "song_select_failed", err)
		}

		var station Station
		err = tx.Where("station_id = ?", submission.StationID).Take(&station).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opProcessSubmission, "station_not_found",
				fmt.Errorf("%w: %s", ErrStationNotFound, submission.StationID))
		}
		if err != nil {
			s.logError(opProcessSubmission, "station_select_failed", err,
				zap.String("station_id", submission.StationID))
			return newServiceError(opProcessSubmission, "station_select_failed", err)
		}

		var show Show
		err = tx.Where("station_id = ? AND is_active = ?", station.StationID, true).
			Order("time_slot ASC").
			Take(&show).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opProcessSubmission, "no_active_show",
				fmt.Errorf("%w: station %s", ErrNoActiveShow, station.StationID))
		}
		if err != nil {
			s.logError(opProcessSubmission, "show_select_failed", err,
				zap.String("station_id", station.StationID))
			return newServiceError(opProcessSubmission, "show_select_failed", err)
		}

		weekStart := resolveWeekStart(submission.WeekSubmitted, now)

		if err := s.acceptSubmission(tx, submission.SubmissionID, now); err != nil {
			return err
		}
		if err := s.checkpoint(stepAcceptSubmission); err != nil {
			return err
		}

		entry, created, err := s.upsertPlaylistEntry(tx, show.ShowID, song.SongID, weekStart, now)
		if err != nil {
			return err
		}
		if err := s.checkpoint(stepPlaylistUpsert); err != nil {
			return err
		}

		metrics := CalculateAirplayMetrics(station.ListenerBase, s.random())

		play, err := s.logPlay(tx, entry, station, metrics, now)
		if err != nil {
			return err
		}
		if err := s.checkpoint(stepPlayLog); err != nil {
			return err
		}

		if err := s.applySongMetrics(tx, song.SongID, metrics, now); err != nil {
			return err
		}
		if err := s.checkpoint(stepSongUpdate); err != nil {
			return err
		}

		if song.BandID != nil {
			if err := s.creditBand(tx, *song.BandID, station, song.SongID, play.PlayID, metrics, now); err != nil {
				return err
			}
		}

		result = ProcessResult{
			SubmissionID:    submission.SubmissionID,
			PlaylistID:      entry.PlaylistID,
			PlayID:          play.PlayID,
			ShowID:          show.ShowID,
			BandID:          song.BandID,
			WeekStartDate:   weekStart,
			Listeners:       metrics.Listeners,
			HypeGained:      metrics.HypeGained,
			StreamsBoost:    metrics.StreamsBoost,
			SalesBoost:      metrics.SalesBoost,
			TimesPlayed:     entry.TimesPlayed,
			PlaylistCreated: created,
		}
		return nil
	})

	if txErr != nil {
		return ProcessResult{}, txErr
	}

	s.logger.Info("submission settled",
		zap.String("submission_id", result.SubmissionID),
		zap.String("play_id", result.PlayID),
		zap.String("show_id", result.ShowID),
		zap.Int64("listeners", result.Listeners),
		zap.Bool("playlist_created", result.PlaylistCreated))

	return result, nil
}

func (s *Service) acceptSubmission(tx *gorm.DB, submissionID string, now time.Time) error {
	updates := map[string]interface{}{
		"status":           SubmissionStatusAccepted,
		"reviewed_at":      now,
		"rejection_reason": "",
	}
	if err := tx.Model(&Submission{}).
		Where("submission_id = ?", submissionID).
		Updates(updates).Error; err != nil {
		s.logError(opProcessSubmission, "submission_update_failed", err,
			zap.String("submission_id", submissionID))
		return newServiceError(opProcessSubmission, "submission_update_failed", err)
	}
	return nil
}

// upsertPlaylistEntry finds or creates the weekly aggregate for the
// (show, song, week) triple. The insert races through the unique index: a
// conflicting row, whether pre-existing or concurrently created, routes the
// call onto the increment path instead of surfacing a failure.
func (s *Service) upsertPlaylistEntry(tx *gorm.DB, showID, songID string, weekStart, now time.Time) (PlaylistEntry, bool, error) {
	playlistID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opProcessSubmission, "id_generation_failed", err)
		return PlaylistEntry{}, false, newServiceError(opProcessSubmission, "id_generation_failed", err)
	}

	candidate := PlaylistEntry{
		PlaylistID:    playlistID,
		ShowID:        showID,
		SongID:        songID,
		WeekStartDate: weekStart,
		TimesPlayed:   1,
		AddedAt:       now,
		IsActive:      true,
	}

	insert := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "show_id"},
			{Name: "song_id"},
			{Name: "week_start_date"},
		},
		DoNothing: true,
	}).Create(&candidate)
	if insert.Error != nil {
		s.logError(opProcessSubmission, "playlist_insert_failed", insert.Error,
			zap.String("show_id", showID), zap.String("song_id", songID))
		return PlaylistEntry{}, false, newServiceError(opProcessSubmission, "playlist_insert_failed", insert.Error)
	}
	if insert.RowsAffected > 0 {
		return candidate, true, nil
	}

	increment := map[string]interface{}{
		"times_played": gorm.Expr("times_played + 1"),
		"added_at":     now,
		"is_active":    true,
	}
	if err := tx.Model(&PlaylistEntry{}).
		Where("show_id = ? AND song_id = ? AND week_start_date = ?", showID, songID, weekStart).
		Updates(increment).Error; err != nil {
		s.logError(opProcessSubmission, "playlist_increment_failed", err,
			zap.String("show_id", showID), zap.String("song_id", songID))
		return PlaylistEntry{}, false, newServiceError(opProcessSubmission, "playlist_increment_failed", err)
	}

	var existing PlaylistEntry
	if err := tx.Where("show_id = ? AND song_id = ? AND week_start_date = ?", showID, songID, weekStart).
		Take(&existing).Error; err != nil {
		s.logError(opProcessSubmission, "playlist_reload_failed", err,
			zap.String("show_id", showID), zap.String("song_id", songID))
		return PlaylistEntry{}, false, newServiceError(opProcessSubmission, "playlist_reload_failed", err)
	}
	return existing, false, nil
}

func (s *Service) logPlay(tx *gorm.DB, entry PlaylistEntry, station Station, metrics PlayMetrics, now time.Time) (PlayRecord, error) {
	playID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opProcessSubmission, "id_generation_failed", err)
		return PlayRecord{}, newServiceError(opProcessSubmission, "id_generation_failed", err)
	}

	play := PlayRecord{
		PlayID:       playID,
		PlaylistID:   entry.PlaylistID,
		ShowID:       entry.ShowID,
		SongID:       entry.SongID,
		StationID:    station.StationID,
		Listeners:    metrics.Listeners,
		HypeGained:   metrics.HypeGained,
		StreamsBoost: metrics.StreamsBoost,
		SalesBoost:   metrics.SalesBoost,
		PlayedAt:     now,
	}
	if err := tx.Create(&play).Error; err != nil {
		s.logError(opProcessSubmission, "play_insert_failed", err,
			zap.String("playlist_id", entry.PlaylistID))
		return PlayRecord{}, newServiceError(opProcessSubmission, "play_insert_failed", err)
	}
	return play, nil
}

func (s *Service) applySongMetrics(tx *gorm.DB, songID string, metrics PlayMetrics, now time.Time) error {
	updates := map[string]interface{}{
		"hype":              gorm.Expr("hype + ?", metrics.HypeGained),
		"total_radio_plays": gorm.Expr("total_radio_plays + 1"),
		"streams":           gorm.Expr("streams + ?", metrics.StreamsBoost),
		"revenue":           gorm.Expr("revenue + ?", metrics.SalesBoost),
		"last_radio_play":   now,
	}
	if err := tx.Model(&Song{}).
		Where("song_id = ?", songID).
		Updates(updates).Error; err != nil {
		s.logError(opProcessSubmission, "song_update_failed", err, zap.String("song_id", songID))
		return newServiceError(opProcessSubmission, "song_update_failed", err)
	}
	return nil
}

// creditBand applies the fame increment, appends the fame event and, when the
// play produced a sales boost, appends the earnings ledger entry. A dangling
// band reference fails the whole settlement.
func (s *Service) creditBand(tx *gorm.DB, bandID string, station Station, songID, playID string, metrics PlayMetrics, now time.Time) error {
	var band Band
	err := tx.Where("band_id = ?", bandID).Take(&band).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newServiceError(opProcessSubmission, "band_not_found",
			fmt.Errorf("%w: %s", ErrBandNotFound, bandID))
	}
	if err != nil {
		s.logError(opProcessSubmission, "band_select_failed", err, zap.String("band_id", bandID))
		return newServiceError(opProcessSubmission, "band_select_failed", err)
	}

	newFame := roundFame(band.Fame + famePerPlay)
	if err := tx.Model(&Band{}).
		Where("band_id = ?", bandID).
		Update("fame", newFame).Error; err != nil {
		s.logError(opProcessSubmission, "band_update_failed", err, zap.String("band_id", bandID))
		return newServiceError(opProcessSubmission, "band_update_failed", err)
	}
	if err := s.checkpoint(stepBandUpdate); err != nil {
		return err
	}

	eventID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opProcessSubmission, "id_generation_failed", err)
		return newServiceError(opProcessSubmission, "id_generation_failed", err)
	}
	event := FameEvent{
		EventID:     eventID,
		BandID:      bandID,
		FameGained:  famePerPlay,
		EventType:   FameEventTypeRadioPlay,
		StationID:   station.StationID,
		StationName: station.Name,
		PlayID:      playID,
		OccurredAt:  now,
	}
	if err := tx.Create(&event).Error; err != nil {
		s.logError(opProcessSubmission, "fame_event_insert_failed", err, zap.String("band_id", bandID))
		return newServiceError(opProcessSubmission, "fame_event_insert_failed", err)
	}
	if err := s.checkpoint(stepFameEvent); err != nil {
		return err
	}

	if metrics.SalesBoost > 0 {
		entryID, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opProcessSubmission, "id_generation_failed", err)
			return newServiceError(opProcessSubmission, "id_generation_failed", err)
		}
		entry := EarningsEntry{
			EntryID:     entryID,
			BandID:      bandID,
			Amount:      metrics.SalesBoost,
			Source:      EarningsSourceRadioPlay,
			Description: fmt.Sprintf("Radio play on %s", station.Name),
			StationID:   station.StationID,
			SongID:      songID,
			PlayID:      playID,
			OccurredAt:  now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			s.logError(opProcessSubmission, "earnings_insert_failed", err, zap.String("band_id", bandID))
			return newServiceError(opProcessSubmission, "earnings_insert_failed", err)
		}
		if err := s.checkpoint(stepEarningsEntry); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("radio service error", attrs...)
}
