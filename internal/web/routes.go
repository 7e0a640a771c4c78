package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ridetrackapp/ridetrack-go/internal/analysis"
	"github.com/ridetrackapp/ridetrack-go/internal/database"
	"github.com/ridetrackapp/ridetrack-go/internal/models"
	"github.com/ridetrackapp/ridetrack-go/internal/parser"
	syncengine "github.com/ridetrackapp/ridetrack-go/internal/sync"
	"github.com/ridetrackapp/ridetrack-go/internal/tracking"
)

// Handler wires the HTTP API: live recording, activity listing, on-demand
// analytics and manual sync triggering.
type Handler struct {
	db       database.Storage
	syncer   *syncengine.Engine
	recorder *tracking.Recorder
	rider    models.Rider
}

func NewHandler(db database.Storage, syncer *syncengine.Engine, recorder *tracking.Recorder, rider models.Rider) *Handler {
	return &Handler{db: db, syncer: syncer, recorder: recorder, rider: rider}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.POST("/recording/start", h.StartRecording)
	router.POST("/recording/samples", h.IngestSamples)
	router.POST("/recording/heartrate", h.IngestHeartRate)
	router.GET("/recording/status", h.RecordingStatus)
	router.POST("/recording/stop", h.StopRecording)
	router.GET("/activities", h.ActivityList)
	router.GET("/activities/:id", h.ActivityDetail)
	router.GET("/activities/:id/analytics", h.ActivityAnalytics)
	router.GET("/activities/:id/series/:name", h.ActivitySeries)
	router.DELETE("/activities/:id", h.DeleteActivity)
	router.POST("/activities/import", h.ImportActivity)
	router.POST("/sync", h.Sync)
}

func (h *Handler) StartRecording(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	activity, err := h.recorder.Start(req.Name)
	if errors.Is(err, tracking.ErrAlreadyRecording) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusCreated, activity)
}

func (h *Handler) IngestSamples(c *gin.Context) {
	var samples []tracking.RawSample
	if err := c.ShouldBindJSON(&samples); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for _, sample := range samples {
		if err := h.recorder.Ingest(sample); err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, tracking.ErrNotRecording) {
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) IngestHeartRate(c *gin.Context) {
	var req struct {
		BPM int `json:"bpm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.BPM <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bpm must be positive"})
		return
	}

	if err := h.recorder.IngestHeartRate(tracking.HeartRateReading{BPM: req.BPM}); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, tracking.ErrNotRecording) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) RecordingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.recorder.Status())
}

func (h *Handler) StopRecording(c *gin.Context) {
	activity, err := h.recorder.Stop()
	if errors.Is(err, tracking.ErrNotRecording) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, activity)
}

func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (h *Handler) ActivityList(c *gin.Context) {
	activities, err := h.db.AllActivities()
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, activities)
}

func (h *Handler) ActivityDetail(c *gin.Context) {
	activity, ok := h.lookupActivity(c)
	if !ok {
		return
	}

	points, err := h.db.PointsForActivity(activity.ID)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": activity,
		"points":   points,
	})
}

func (h *Handler) ActivityAnalytics(c *gin.Context) {
	activity, ok := h.lookupActivity(c)
	if !ok {
		return
	}

	points, err := h.db.PointsForActivity(activity.ID)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, analysis.Analyze(activity, points, h.rider.Gender))
}

func (h *Handler) ActivitySeries(c *gin.Context) {
	activity, ok := h.lookupActivity(c)
	if !ok {
		return
	}

	points, err := h.db.PointsForActivity(activity.ID)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var series []analysis.GraphPoint
	switch c.Param("name") {
	case "speed-time":
		series = analysis.SpeedOverTime(points)
	case "speed-distance":
		series = analysis.SpeedOverDistance(points)
	case "altitude-time":
		series = analysis.AltitudeOverTime(points)
	case "altitude-distance":
		series = analysis.AltitudeOverDistance(points)
	case "heartrate-time":
		series = analysis.HeartRateOverTime(points)
	case "heartrate-distance":
		series = analysis.HeartRateOverDistance(points)
	case "recovery":
		series = analysis.RecoveryPhases(points, analysis.DefaultRecoveryParams)
	case "efficiency-time":
		series = analysis.WorkloadEfficiencyOverTime(points, analysis.DefaultEfficiencyParams)
	case "efficiency-distance":
		series = analysis.WorkloadEfficiencyOverDistance(points, analysis.DefaultEfficiencyParams)
	case "load-time":
		series = analysis.CumulativeLoadOverTime(points)
	default:
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, series)
}

func (h *Handler) DeleteActivity(c *gin.Context) {
	activity, ok := h.lookupActivity(c)
	if !ok {
		return
	}

	// Tombstone; the row disappears once the sync engine confirms the
	// remote deletion.
	if err := h.db.MarkActivityDeleted(activity.ID); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ImportActivity(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, 32<<20))
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
		return
	}

	track, err := parser.ParseData(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	activity := buildImportedActivity(track, h.rider)
	id, err := h.db.InsertActivity(activity)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	for i := range track.Points {
		track.Points[i].ActivityID = id
	}
	if err := h.db.InsertPoints(track.Points); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) Sync(c *gin.Context) {
	err := h.syncer.Sync(c.Request.Context())
	if errors.Is(err, syncengine.ErrSyncInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) lookupActivity(c *gin.Context) (*models.Activity, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return nil, false
	}

	activity, err := h.db.GetActivity(id)
	if errors.Is(err, database.ErrNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil, false
	}
	return activity, true
}

// buildImportedActivity derives the persisted summary fields from the
// imported point sequence.
func buildImportedActivity(track *parser.ImportedTrack, rider models.Rider) *models.Activity {
	now := time.Now().UTC()
	activity := &models.Activity{
		IsFinished: true,
		Name:       track.Name,
		Type:       "ride",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if rider.WeightKg > 0 {
		w := rider.WeightKg
		activity.Weight = &w
	}

	if len(track.Points) > 0 {
		stats := analysis.CalculateTrackingStats(track.Points)
		activity.StartTimestamp = track.Points[0].Timestamp
		activity.EndTimestamp = track.Points[len(track.Points)-1].Timestamp
		activity.Duration = stats.ActiveDuration
		activity.Distance = stats.Distance
		activity.AverageSpeed = stats.AverageSpeed
	}
	return activity
}
