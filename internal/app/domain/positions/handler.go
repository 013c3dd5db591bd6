package positions

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/domain/geo"
	"github.com/remindly/geotrigger/internal/app/domain/geofence"
	"github.com/remindly/geotrigger/internal/app/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, you should validate the origin
		return true
	},
}

// sampleRequest is the wire form of a position report.
type sampleRequest struct {
	Latitude       float64    `json:"latitude" binding:"required"`
	Longitude      float64    `json:"longitude" binding:"required"`
	AccuracyMeters float64    `json:"accuracy_meters"`
	Timestamp      *time.Time `json:"timestamp"`
}

func (r sampleRequest) toSample() models.PositionSample {
	sample := models.PositionSample{
		Coordinate:     models.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude},
		AccuracyMeters: r.AccuracyMeters,
	}
	if r.Timestamp != nil {
		sample.Timestamp = *r.Timestamp
	} else {
		sample.Timestamp = time.Now()
	}
	return sample
}

// streamMessage is what the stream endpoint writes back per sample.
type streamMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// Handler receives position samples and forwards them to the proximity
// monitor. The stream endpoint applies a small distance filter per
// connection so a stationary device does not flood the engine.
type Handler struct {
	logger               *zap.Logger
	monitor              *geofence.Monitor
	store                *Store
	distanceFilterMeters float64
}

func NewHandler(monitor *geofence.Monitor, store *Store, distanceFilterMeters float64, logger *zap.Logger) *Handler {
	return &Handler{
		logger:               logger,
		monitor:              monitor,
		store:                store,
		distanceFilterMeters: distanceFilterMeters,
	}
}

// Submit handles a single position report.
func (h *Handler) Submit(c *gin.Context) {
	var req sampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position payload"})
		return
	}
	if !validCoordinate(req.Latitude, req.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	sample := req.toSample()
	h.store.Record(sample)
	if err := h.monitor.Submit(c.Request.Context(), sample); err != nil {
		h.logger.Error("failed to submit position sample", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// HandleWebSocket reads a stream of position reports for the lifetime of
// the connection.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer ws.Close()

	h.logger.Info("position stream established", zap.String("remote", c.ClientIP()))

	var lastForwarded *models.PositionSample
	for {
		var req sampleRequest
		if err := ws.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("position stream error", zap.Error(err))
			}
			break
		}

		if !validCoordinate(req.Latitude, req.Longitude) {
			_ = ws.WriteJSON(streamMessage{Type: "error", Message: "coordinates out of range"})
			continue
		}

		sample := req.toSample()
		h.store.Record(sample)

		if lastForwarded != nil &&
			geo.DistanceMeters(sample.Coordinate, lastForwarded.Coordinate) < h.distanceFilterMeters {
			_ = ws.WriteJSON(streamMessage{Type: "filtered"})
			continue
		}

		if err := h.monitor.Submit(c.Request.Context(), sample); err != nil {
			h.logger.Error("failed to submit streamed sample", zap.Error(err))
			_ = ws.WriteJSON(streamMessage{Type: "error", Message: "engine unavailable"})
			break
		}
		lastForwarded = &sample

		if err := ws.WriteJSON(streamMessage{Type: "accepted"}); err != nil {
			h.logger.Error("failed to ack streamed sample", zap.Error(err))
			break
		}
	}
}

func validCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
