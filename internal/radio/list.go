package radio

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingShowID = errors.New("show identifier is required")
	errMissingSongID = errors.New("song identifier is required")
)

// ListShowPlaylist returns the active weekly aggregates for a show, most
// recently refreshed first. When weekStart is provided only that week is
// returned.
func (s *Service) ListShowPlaylist(ctx context.Context, showID string, weekStart *time.Time) ([]PlaylistEntry, error) {
	if s.db == nil {
		s.logError(opListShowPlaylist, "missing_database", errMissingDatabase)
		return nil, newServiceError(opListShowPlaylist, "missing_database", errMissingDatabase)
	}
	if showID == "" {
		s.logError(opListShowPlaylist, "missing_show_id", errMissingShowID)
		return nil, newServiceError(opListShowPlaylist, "missing_show_id", errMissingShowID)
	}

	query := s.db.WithContext(ctx).
		Where("show_id = ? AND is_active = ?", showID, true)
	if weekStart != nil {
		query = query.Where("week_start_date = ?", WeekStart(*weekStart))
	}

	var entries []PlaylistEntry
	if err := query.Order("added_at DESC").Find(&entries).Error; err != nil {
		s.logError(opListShowPlaylist, "query_failed", err, zap.String("show_id", showID))
		return nil, newServiceError(opListShowPlaylist, "query_failed", err)
	}
	return entries, nil
}

// ListSongPlays returns a song's play history, newest first.
func (s *Service) ListSongPlays(ctx context.Context, songID string) ([]PlayRecord, error) {
	if s.db == nil {
		s.logError(opListSongPlays, "missing_database", errMissingDatabase)
		return nil, newServiceError(opListSongPlays, "missing_database", errMissingDatabase)
	}
	if songID == "" {
		s.logError(opListSongPlays, "missing_song_id", errMissingSongID)
		return nil, newServiceError(opListSongPlays, "missing_song_id", errMissingSongID)
	}

	var plays []PlayRecord
	if err := s.db.WithContext(ctx).
		Where("song_id = ?", songID).
		Order("played_at DESC").
		Find(&plays).Error; err != nil {
		s.logError(opListSongPlays, "query_failed", err, zap.String("song_id", songID))
		return nil, newServiceError(opListSongPlays, "query_failed", err)
	}
	return plays, nil
}
