package world

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasuganosora/enemyai/audit"
	"github.com/kasuganosora/enemyai/cache"
	"go.uber.org/zap"
)

// EventTail is how many lifecycle events are kept per room in the cache.
const EventTail = 100

func priorityKey(room string) string { return "ai:priority:" + room }
func stateKey(room string) string    { return "ai:state:" + room }
func eventsKey(room string) string   { return "ai:events:" + room }

// EventsChannel is the pub/sub channel carrying a room's lifecycle events.
func EventsChannel(room string) string { return "ai:events:" + room }

// Telemetry mirrors the scheduler state of rooms into the cache: the last
// ranking as a sorted set, each agent's view as a hash field, and a capped
// list of lifecycle events that is also published live.
type Telemetry struct {
	cache  cache.Cache
	pubsub cache.PubSub
	ttl    time.Duration
	logger *zap.Logger
}

// NewTelemetry creates a Telemetry. pubsub may be nil; ttl <= 0 keeps keys
// forever.
func NewTelemetry(c cache.Cache, ps cache.PubSub, ttl time.Duration, logger *zap.Logger) *Telemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telemetry{cache: c, pubsub: ps, ttl: ttl, logger: logger}
}

// Flush replaces the room's ranking and state keys.
func (t *Telemetry) Flush(ctx context.Context, room *Room) error {
	prio := room.Priorities()
	views := room.Snapshot()

	pk, sk := priorityKey(room.ID), stateKey(room.ID)
	if err := t.cache.Del(ctx, pk, sk); err != nil {
		return fmt.Errorf("telemetry: clear %s: %w", room.ID, err)
	}
	for _, p := range prio {
		if err := t.cache.ZAdd(ctx, pk, p.Priority, p.ID); err != nil {
			return fmt.Errorf("telemetry: rank %s: %w", p.ID, err)
		}
	}
	fields := make(map[string]string, len(views))
	for _, v := range views {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("telemetry: encode %s: %w", v.ID, err)
		}
		fields[v.ID] = string(b)
	}
	if len(fields) > 0 {
		if err := t.cache.HSet(ctx, sk, fields); err != nil {
			return fmt.Errorf("telemetry: state %s: %w", room.ID, err)
		}
	}
	if t.ttl > 0 {
		for _, k := range []string{pk, sk} {
			if err := t.cache.Expire(ctx, k, t.ttl); err != nil && !cache.IsNotFound(err) {
				return fmt.Errorf("telemetry: expire %s: %w", k, err)
			}
		}
	}
	return nil
}

// Ranked is one entry of the cached ranking.
type Ranked struct {
	ID       string  `json:"id"`
	Priority float64 `json:"priority"`
}

// Report is the cached telemetry of one room.
type Report struct {
	Room    string               `json:"room"`
	Ranking []Ranked             `json:"ranking"`
	Agents  map[string]AgentView `json:"agents"`
	Events  []json.RawMessage    `json:"events"`
}

// Read returns what the cache currently holds for room.
func (t *Telemetry) Read(ctx context.Context, room string) (*Report, error) {
	rep := &Report{Room: room, Agents: make(map[string]AgentView)}

	ids, err := t.cache.ZRevRange(ctx, priorityKey(room), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("telemetry: read ranking: %w", err)
	}
	for _, id := range ids {
		score, err := t.cache.ZScore(ctx, priorityKey(room), id)
		if err != nil {
			if cache.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("telemetry: read score %s: %w", id, err)
		}
		rep.Ranking = append(rep.Ranking, Ranked{ID: id, Priority: score})
	}

	states, err := t.cache.HGetAll(ctx, stateKey(room))
	if err != nil {
		return nil, fmt.Errorf("telemetry: read state: %w", err)
	}
	for id, raw := range states {
		var v AgentView
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.logger.Warn("telemetry state not decodable", zap.String("agent_id", id), zap.Error(err))
			continue
		}
		rep.Agents[id] = v
	}

	events, err := t.cache.LRange(ctx, eventsKey(room), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("telemetry: read events: %w", err)
	}
	for _, e := range events {
		rep.Events = append(rep.Events, json.RawMessage(e))
	}
	return rep, nil
}

// eventRecord is the cached and published form of a lifecycle event.
type eventRecord struct {
	TraceID string      `json:"trace_id,omitempty"`
	AgentID string      `json:"agent_id"`
	Kind    string      `json:"kind"`
	Action  string      `json:"action"`
	State   string      `json:"state"`
	X       float64     `json:"x"`
	Z       float64     `json:"z"`
	Detail  interface{} `json:"detail,omitempty"`
	At      time.Time   `json:"at"`
}

// Log implements Journal: the event is prepended to the room's capped list
// and published on EventsChannel.
func (t *Telemetry) Log(e audit.Entry) {
	b, err := json.Marshal(eventRecord{
		TraceID: e.TraceID,
		AgentID: e.AgentID,
		Kind:    e.Kind,
		Action:  e.Action,
		State:   e.State,
		X:       e.Position.X,
		Z:       e.Position.Z,
		Detail:  e.Detail,
		At:      time.Now(),
	})
	if err != nil {
		t.logger.Warn("telemetry event not encodable", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := eventsKey(e.Room)
	if err := t.cache.LPush(ctx, key, string(b)); err != nil {
		t.logger.Warn("telemetry event push failed", zap.String("room_id", e.Room), zap.Error(err))
		return
	}
	if err := t.cache.LTrim(ctx, key, 0, EventTail-1); err != nil {
		t.logger.Warn("telemetry event trim failed", zap.String("room_id", e.Room), zap.Error(err))
	}
	if t.pubsub != nil {
		if err := t.pubsub.Publish(ctx, EventsChannel(e.Room), string(b)); err != nil {
			t.logger.Warn("telemetry event publish failed", zap.String("room_id", e.Room), zap.Error(err))
		}
	}
}

// Journals fans entries out to several journals.
type Journals []Journal

// Log implements Journal.
func (js Journals) Log(e audit.Entry) {
	for _, j := range js {
		if j != nil {
			j.Log(e)
		}
	}
}
