package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/marqueelabs/airwave/backend/internal/radio"
	"go.uber.org/zap"
)

var errMissingRadioService = errors.New("radio service dependency required")

// Dependencies wires the HTTP layer to the settlement service.
type Dependencies struct {
	RadioService *radio.Service
	Logger       *zap.Logger
}

// NewHTTPHandler builds the gin router exposing the settlement pipeline and
// its read-side queries.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.RadioService == nil {
		return nil, errMissingRadioService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		radioService: deps.RadioService,
		logger:       logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.POST("/submissions/:submission_id/accept", handler.handleAcceptSubmission)
	router.GET("/shows/:show_id/playlist", handler.handleShowPlaylist)
	router.GET("/songs/:song_id/plays", handler.handleSongPlays)

	return router, nil
}

type httpHandler struct {
	radioService *radio.Service
	logger       *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type settlementPayload struct {
	SubmissionID    string  `json:"submission_id"`
	PlaylistID      string  `json:"playlist_id"`
	PlayID          string  `json:"play_id"`
	ShowID          string  `json:"show_id"`
	BandID          *string `json:"band_id"`
	WeekStartDate   string  `json:"week_start_date"`
	Listeners       int64   `json:"listeners"`
	HypeGained      int64   `json:"hype_gained"`
	StreamsBoost    int64   `json:"streams_boost"`
	SalesBoost      int64   `json:"sales_boost"`
	TimesPlayed     int64   `json:"times_played"`
	PlaylistCreated bool    `json:"playlist_created"`
}

func (h *httpHandler) handleAcceptSubmission(c *gin.Context) {
	submissionID, err := radio.NewSubmissionID(c.Param("submission_id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_submission_id"})
		return
	}

	result, err := h.radioService.ProcessSubmission(c.Request.Context(), submissionID)
	if err != nil {
		h.respondSettlementError(c, err)
		return
	}

	c.JSON(http.StatusOK, settlementPayload{
		SubmissionID:    result.SubmissionID,
		PlaylistID:      result.PlaylistID,
		PlayID:          result.PlayID,
		ShowID:          result.ShowID,
		BandID:          result.BandID,
		WeekStartDate:   result.WeekStartDate.Format(time.RFC3339),
		Listeners:       result.Listeners,
		HypeGained:      result.HypeGained,
		StreamsBoost:    result.StreamsBoost,
		SalesBoost:      result.SalesBoost,
		TimesPlayed:     result.TimesPlayed,
		PlaylistCreated: result.PlaylistCreated,
	})
}

func (h *httpHandler) respondSettlementError(c *gin.Context, err error) {
	code := "settlement_failed"
	var serviceErr *radio.ServiceError
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}

	switch {
	case errors.Is(err, radio.ErrSubmissionNotFound),
		errors.Is(err, radio.ErrSongNotFound),
		errors.Is(err, radio.ErrStationNotFound),
		errors.Is(err, radio.ErrNoActiveShow):
		c.JSON(http.StatusNotFound, gin.H{"error": code})
	case errors.Is(err, radio.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, gin.H{"error": code})
	default:
		h.logger.Error("submission settlement failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": code})
	}
}

type playlistEntryPayload struct {
	PlaylistID    string `json:"playlist_id"`
	ShowID        string `json:"show_id"`
	SongID        string `json:"song_id"`
	WeekStartDate string `json:"week_start_date"`
	TimesPlayed   int64  `json:"times_played"`
	AddedAt       string `json:"added_at"`
}

func (h *httpHandler) handleShowPlaylist(c *gin.Context) {
	showID := c.Param("show_id")

	var weekStart *time.Time
	if raw := c.Query("week_start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_week_start"})
			return
		}
		weekStart = &parsed
	}

	entries, err := h.radioService.ListShowPlaylist(c.Request.Context(), showID, weekStart)
	if err != nil {
		h.logger.Error("failed to list show playlist", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "playlist_query_failed"})
		return
	}

	payload := make([]playlistEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, playlistEntryPayload{
			PlaylistID:    entry.PlaylistID,
			ShowID:        entry.ShowID,
			SongID:        entry.SongID,
			WeekStartDate: entry.WeekStartDate.UTC().Format(time.RFC3339),
			TimesPlayed:   entry.TimesPlayed,
			AddedAt:       entry.AddedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": payload})
}

type playRecordPayload struct {
	PlayID       string `json:"play_id"`
	PlaylistID   string `json:"playlist_id"`
	ShowID       string `json:"show_id"`
	StationID    string `json:"station_id"`
	Listeners    int64  `json:"listeners"`
	HypeGained   int64  `json:"hype_gained"`
	StreamsBoost int64  `json:"streams_boost"`
	SalesBoost   int64  `json:"sales_boost"`
	PlayedAt     string `json:"played_at"`
}

func (h *httpHandler) handleSongPlays(c *gin.Context) {
	songID := c.Param("song_id")

	plays, err := h.radioService.ListSongPlays(c.Request.Context(), songID)
	if err != nil {
		h.logger.Error("failed to list song plays", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "plays_query_failed"})
		return
	}

	payload := make([]playRecordPayload, 0, len(plays))
	for _, play := range plays {
		payload = append(payload, playRecordPayload{
			PlayID:       play.PlayID,
			PlaylistID:   play.PlaylistID,
			ShowID:       play.ShowID,
			StationID:    play.StationID,
			Listeners:    play.Listeners,
			HypeGained:   play.HypeGained,
			StreamsBoost: play.StreamsBoost,
			SalesBoost:   play.SalesBoost,
			PlayedAt:     play.PlayedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"plays": payload})
}
