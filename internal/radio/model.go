package radio

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SubmissionStatus enumerates the review states of a submission.
type SubmissionStatus string

const (
	// SubmissionStatusPending marks a submission awaiting review.
	SubmissionStatusPending SubmissionStatus = "pending"
	// SubmissionStatusAccepted marks a submission that has been settled by the pipeline.
	SubmissionStatusAccepted SubmissionStatus = "accepted"
	// SubmissionStatusRejected marks a submission declined by the review flow.
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

const maxIdentifierLength = 190

// ErrInvalidSubmissionID indicates that a submission identifier is empty or exceeds storage bounds.
var ErrInvalidSubmissionID = errors.New("radio: invalid submission id")

// SubmissionID represents a validated submission identifier.
type SubmissionID string

// NewSubmissionID validates raw input and returns a SubmissionID.
func NewSubmissionID(rawInput string) (SubmissionID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSubmissionID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidSubmissionID, maxIdentifierLength)
	}
	return SubmissionID(trimmed), nil
}

// String returns the underlying string identifier.
func (id SubmissionID) String() string {
	return string(id)
}

// Submission models a band's request to have a song considered by a station.
type Submission struct {
	SubmissionID    string           `gorm:"column:submission_id;primaryKey;size:190;not null"`
	SongID          string           `gorm:"column:song_id;size:190;not null;index"`
	StationID       string           `gorm:"column:station_id;size:190;not null;index"`
	WeekSubmitted   *time.Time       `gorm:"column:week_submitted"`
	Status          SubmissionStatus `gorm:"column:status;size:32;not null;default:'pending'"`
	ReviewedAt      *time.Time       `gorm:"column:reviewed_at"`
	RejectionReason string           `gorm:"column:rejection_reason;size:512;not null;default:''"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Submission) TableName() string {
	return "radio_submissions"
}

// Station models a radio outlet. Read-only for the settlement pipeline.
type Station struct {
	StationID    string `gorm:"column:station_id;primaryKey;size:190;not null"`
	Name         string `gorm:"column:name;size:320;not null"`
	ListenerBase int64  `gorm:"column:listener_base;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Station) TableName() string {
	return "radio_stations"
}

// Show models a recurring programming slot on a station.
type Show struct {
	ShowID    string `gorm:"column:show_id;primaryKey;size:190;not null"`
	StationID string `gorm:"column:station_id;size:190;not null;index:idx_shows_station_slot,priority:1"`
	Name      string `gorm:"column:name;size:320;not null"`
	IsActive  bool   `gorm:"column:is_active;not null"`
	TimeSlot  int64  `gorm:"column:time_slot;not null;index:idx_shows_station_slot,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (Show) TableName() string {
	return "radio_shows"
}

// Song models a band's track with its cumulative airplay counters.
type Song struct {
	SongID          string     `gorm:"column:song_id;primaryKey;size:190;not null"`
	BandID          *string    `gorm:"column:band_id;size:190;index"`
	Title           string     `gorm:"column:title;size:320;not null"`
	Hype            int64      `gorm:"column:hype;not null;default:0"`
	TotalRadioPlays int64      `gorm:"column:total_radio_plays;not null;default:0"`
	Streams         int64      `gorm:"column:streams;not null;default:0"`
	Revenue         int64      `gorm:"column:revenue;not null;default:0"`
	LastRadioPlay   *time.Time `gorm:"column:last_radio_play"`
}

// TableName provides the explicit table binding for GORM.
func (Song) TableName() string {
	return "songs"
}

// Band owns songs and accumulates fame from airplay.
type Band struct {
	BandID string  `gorm:"column:band_id;primaryKey;size:190;not null"`
	Name   string  `gorm:"column:name;size:320;not null"`
	Fame   float64 `gorm:"column:fame;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (Band) TableName() string {
	return "bands"
}

// PlaylistEntry aggregates a song's airplay on one show within one calendar week.
// The unique index on (show_id, song_id, week_start_date) is the idempotency
// boundary for the weekly aggregator.
type PlaylistEntry struct {
	PlaylistID    string    `gorm:"column:playlist_id;primaryKey;size:190;not null"`
	ShowID        string    `gorm:"column:show_id;size:190;not null;uniqueIndex:idx_playlist_show_song_week,priority:1"`
	SongID        string    `gorm:"column:song_id;size:190;not null;uniqueIndex:idx_playlist_show_song_week,priority:2"`
	WeekStartDate time.Time `gorm:"column:week_start_date;not null;uniqueIndex:idx_playlist_show_song_week,priority:3"`
	TimesPlayed   int64     `gorm:"column:times_played;not null;default:0"`
	AddedAt       time.Time `gorm:"column:added_at;not null"`
	IsActive      bool      `gorm:"column:is_active;not null"`
}

// TableName provides the explicit table binding for GORM.
func (PlaylistEntry) TableName() string {
	return "show_playlists"
}

// PlayRecord is the immutable log of a single airing event.
type PlayRecord struct {
	PlayID       string    `gorm:"column:play_id;primaryKey;size:190;not null"`
	PlaylistID   string    `gorm:"column:playlist_id;size:190;not null;index"`
	ShowID       string    `gorm:"column:show_id;size:190;not null"`
	SongID       string    `gorm:"column:song_id;size:190;not null;index:idx_plays_song_time,priority:1"`
	StationID    string    `gorm:"column:station_id;size:190;not null"`
	Listeners    int64     `gorm:"column:listeners;not null"`
	HypeGained   int64     `gorm:"column:hype_gained;not null"`
	StreamsBoost int64     `gorm:"column:streams_boost;not null"`
	SalesBoost   int64     `gorm:"column:sales_boost;not null"`
	PlayedAt     time.Time `gorm:"column:played_at;not null;index:idx_plays_song_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (PlayRecord) TableName() string {
	return "radio_plays"
}

// FameEventTypeRadioPlay is the only fame event type this pipeline appends.
const FameEventTypeRadioPlay = "radio_play"

// FameEvent is the append-only audit trail of a band's fame changing.
type FameEvent struct {
	EventID     string    `gorm:"column:event_id;primaryKey;size:190;not null"`
	BandID      string    `gorm:"column:band_id;size:190;not null;index:idx_fame_events_band_time,priority:1"`
	FameGained  float64   `gorm:"column:fame_gained;not null"`
	EventType   string    `gorm:"column:event_type;size:64;not null"`
	StationID   string    `gorm:"column:station_id;size:190;not null"`
	StationName string    `gorm:"column:station_name;size:320;not null"`
	PlayID      string    `gorm:"column:play_id;size:190;not null"`
	OccurredAt  time.Time `gorm:"column:occurred_at;not null;index:idx_fame_events_band_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (FameEvent) TableName() string {
	return "band_fame_events"
}

// EarningsSourceRadioPlay tags ledger entries credited by the settlement pipeline.
const EarningsSourceRadioPlay = "radio_play"

// EarningsEntry is the append-only ledger of revenue attributed to a band.
type EarningsEntry struct {
	EntryID     string    `gorm:"column:entry_id;primaryKey;size:190;not null"`
	BandID      string    `gorm:"column:band_id;size:190;not null;index:idx_earnings_band_time,priority:1"`
	Amount      int64     `gorm:"column:amount;not null"`
	Source      string    `gorm:"column:source;size:64;not null"`
	Description string    `gorm:"column:description;size:512;not null"`
	StationID   string    `gorm:"column:station_id;size:190;not null"`
	SongID      string    `gorm:"column:song_id;size:190;not null"`
	PlayID      string    `gorm:"column:play_id;size:190;not null"`
	OccurredAt  time.Time `gorm:"column:occurred_at;not null;index:idx_earnings_band_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (EarningsEntry) TableName() string {
	return "band_earnings"
}
