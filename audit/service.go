package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry holds one agent lifecycle event to be journaled.
type Entry struct {
	TraceID  string
	Room     string
	AgentID  string
	Kind     string
	Action   string // spawn | despawn | flee | kill
	State    string
	Position ai.Vec3
	Detail   interface{}
}

// detail is the JSON column payload.
type detail struct {
	Position ai.Vec3     `json:"position"`
	Extra    interface{} `json:"extra,omitempty"`
}

// Service journals entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.AgentEvent
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger

	batchSize int
	interval  time.Duration
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		db:        db,
		ch:        make(chan *model.AgentEvent, 1024),
		stopCh:    make(chan struct{}),
		logger:    logger,
		batchSize: 100,
		interval:  2 * time.Second,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Log enqueues an entry for async DB write. Entries are dropped once the
// service is stopped or its queue is full.
func (svc *Service) Log(entry Entry) {
	raw, err := json.Marshal(detail{Position: entry.Position, Extra: entry.Detail})
	if err != nil {
		svc.logger.Warn("audit detail not encodable",
			zap.String("action", entry.Action), zap.Error(err))
		raw = []byte("{}")
	}
	record := &model.AgentEvent{
		TraceID: entry.TraceID,
		Room:    entry.Room,
		AgentID: entry.AgentID,
		Kind:    entry.Kind,
		Action:  entry.Action,
		State:   entry.State,
		Detail:  datatypes.JSON(raw),
	}
	select {
	case <-svc.stopCh:
		return
	default:
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action))
	}
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.interval)
	defer ticker.Stop()

	batch := make([]*model.AgentEvent, 0, svc.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed",
				zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= svc.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Recent returns the newest events of room, newest first.
func Recent(db *gorm.DB, room string, limit int) ([]model.AgentEvent, error) {
	var events []model.AgentEvent
	err := db.Where("room = ?", room).Order("id desc").Limit(limit).Find(&events).Error
	return events, err
}
