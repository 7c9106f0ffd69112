package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/enemyai/audit"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/world"
	mw "github.com/kasuganosora/enemyai/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DebugHandler exposes the AI rooms for inspection and manual steering.
type DebugHandler struct {
	worlds      *world.WorldManager
	telemetry   *world.Telemetry
	journal     world.Journal
	db          *gorm.DB
	defaultRoom string
	logger      *zap.Logger
}

// NewDebugHandler creates a DebugHandler. Requests without ?room= use
// defaultRoom. telemetry, journal and db may be nil.
func NewDebugHandler(worlds *world.WorldManager, telemetry *world.Telemetry, journal world.Journal,
	db *gorm.DB, defaultRoom string, logger *zap.Logger) *DebugHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebugHandler{
		worlds:      worlds,
		telemetry:   telemetry,
		journal:     journal,
		db:          db,
		defaultRoom: defaultRoom,
		logger:      logger,
	}
}

// Register mounts the debug routes on r.
func (h *DebugHandler) Register(r gin.IRouter) {
	g := r.Group("/debug")
	g.GET("/rooms", h.ListRooms)
	g.GET("/agents", h.ListAgents)
	g.GET("/agents/:id", h.GetAgent)
	g.POST("/agents/:id/flee", h.Flee)
	g.POST("/agents/:id/kill", h.Kill)
	g.POST("/player", h.MovePlayer)
	g.GET("/telemetry", h.Telemetry)
	g.GET("/events", h.Events)
}

// RoomSummary is one row of GET /debug/rooms.
type RoomSummary struct {
	ID       string  `json:"id"`
	Agents   int     `json:"agents"`
	Enabled  int     `json:"enabled"`
	Elapsed  float64 `json:"elapsed"`
	PlayerHP float64 `json:"player_hp"`
}

func (h *DebugHandler) room(c *gin.Context) (*world.Room, bool) {
	id := c.DefaultQuery("room", h.defaultRoom)
	room := h.worlds.Get(id)
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found", "room": id})
		return nil, false
	}
	return room, true
}

// ListRooms returns every active room.
// GET /debug/rooms
func (h *DebugHandler) ListRooms(c *gin.Context) {
	rooms := h.worlds.Rooms()
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		_, hp, _ := r.Player()
		out = append(out, RoomSummary{
			ID:       r.ID,
			Agents:   r.Len(),
			Enabled:  r.EnabledCount(),
			Elapsed:  r.Elapsed(),
			PlayerHP: hp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

// ListAgents returns every agent of a room with the last ranking.
// GET /debug/agents?room=arena
func (h *DebugHandler) ListAgents(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room":     room.ID,
		"agents":   room.Snapshot(),
		"priority": room.Priorities(),
		"enabled":  room.EnabledCount(),
	})
}

// GetAgent returns one agent.
// GET /debug/agents/:id?room=arena
func (h *DebugHandler) GetAgent(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	v, ok := room.View(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return
	}
	c.JSON(http.StatusOK, v)
}

// Flee forces an agent to run from the player.
// POST /debug/agents/:id/flee?room=arena
func (h *DebugHandler) Flee(c *gin.Context) {
	h.act(c, "flee", (*world.Room).Flee)
}

// Kill marks an agent dead; it despawns on the next tick.
// POST /debug/agents/:id/kill?room=arena
func (h *DebugHandler) Kill(c *gin.Context) {
	h.act(c, "kill", (*world.Room).Kill)
}

func (h *DebugHandler) act(c *gin.Context, action string, fn func(*world.Room, string) error) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := fn(room, id); err != nil {
		if errors.Is(err, world.ErrUnknownAgent) {
			c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "action failed"})
		return
	}
	v, _ := room.View(id)
	if h.journal != nil {
		h.journal.Log(audit.Entry{
			TraceID:  mw.GetTraceID(c),
			Room:     room.ID,
			AgentID:  id,
			Kind:     v.Kind,
			Action:   action,
			State:    v.State,
			Position: v.Position,
		})
	}
	h.logger.Info("debug action",
		zap.String("action", action),
		zap.String("room_id", room.ID),
		zap.String("agent_id", id),
		zap.String("trace_id", mw.GetTraceID(c)))
	c.JSON(http.StatusOK, v)
}

type movePlayerRequest struct {
	X  float64  `json:"x"`
	Z  float64  `json:"z"`
	HP *float64 `json:"hp"`
}

// MovePlayer moves the player, placing it first if the room has none or
// hp is given.
// POST /debug/player?room=arena {"x":1,"z":2}
func (h *DebugHandler) MovePlayer(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	var req movePlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pos := ai.Vec3{X: req.X, Z: req.Z}
	p, hp, exists := room.Player()
	switch {
	case req.HP != nil:
		id := p.ID
		if id == "" {
			id = "player"
		}
		room.SetPlayer(id, pos, *req.HP)
	case !exists:
		c.JSON(http.StatusConflict, gin.H{"error": "no live player; send hp to respawn"})
		return
	default:
		room.SetPlayerPosition(pos)
	}
	p, hp, _ = room.Player()
	c.JSON(http.StatusOK, gin.H{"id": p.ID, "position": p.Position, "hp": hp})
}

// Telemetry returns what the cache holds for a room.
// GET /debug/telemetry?room=arena
func (h *DebugHandler) Telemetry(c *gin.Context) {
	if h.telemetry == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telemetry disabled"})
		return
	}
	id := c.DefaultQuery("room", h.defaultRoom)
	rep, err := h.telemetry.Read(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("telemetry read failed", zap.String("room_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "telemetry read failed"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Events returns the newest journaled events of a room.
// GET /debug/events?room=arena&limit=50
func (h *DebugHandler) Events(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}
	id := c.DefaultQuery("room", h.defaultRoom)
	events, err := audit.Recent(h.db, id, limit)
	if err != nil {
		h.logger.Error("events query failed", zap.String("room_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "events query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": id, "events": events})
}
