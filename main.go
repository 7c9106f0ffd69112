package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/enemyai/api/rest"
	"github.com/kasuganosora/enemyai/api/sse"
	"github.com/kasuganosora/enemyai/audit"
	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/config"
	dbadapter "github.com/kasuganosora/enemyai/db"
	"github.com/kasuganosora/enemyai/game/ai"
	"github.com/kasuganosora/enemyai/game/nav"
	"github.com/kasuganosora/enemyai/game/world"
	mw "github.com/kasuganosora/enemyai/middleware"
	"github.com/kasuganosora/enemyai/model"
	"github.com/kasuganosora/enemyai/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer dbadapter.Close(db)
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	seeded, err := model.SeedSpawnPoints(db, spawnPoints(cfg.Spawns))
	if err != nil {
		log.Fatalf("db seed: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode), zap.Int("seeded_spawns", seeded))

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer c.Close()
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Journal ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())
	telemetry := world.NewTelemetry(c, pubsub, cfg.AI.TelemetryTTL, logger)
	journal := world.Journals{auditSvc, telemetry}

	// ---- Rooms ----
	seed := cfg.AI.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	// Filled before the scheduler starts; read-only afterwards.
	spawners := make(map[string]*world.Spawner)

	opts := world.RoomOptions{
		TickInterval: cfg.AI.TickInterval(),
		CellSize:     cfg.AI.Arena.CellSize * 4,
		Grid:         arenaGrid(cfg.AI.Arena),
		Manager:      cfg.AI.Manager,
	}
	wm := world.NewWorldManager(opts, func(room *world.Room) {
		// Called under the manager lock, before the room loop starts.
		sp, err := setupRoom(room, cfg, db, rand.New(rand.NewSource(rng.Int63())), logger)
		if err != nil {
			logger.Error("room setup failed", zap.String("room_id", room.ID), zap.Error(err))
			return
		}
		sp.SetJournal(journal)
		if err := sp.SpawnAll(); err != nil {
			logger.Warn("initial spawn incomplete", zap.String("room_id", room.ID), zap.Error(err))
		}
		spawners[room.ID] = sp
	}, logger)
	defer wm.StopAll()
	for _, id := range cfg.AI.Rooms {
		room := wm.GetOrCreate(id)
		logger.Info("room started",
			zap.String("room_id", id),
			zap.Int("agents", room.Len()),
			zap.Duration("tick", opts.TickInterval))
	}

	// ---- Periodic Scheduler Tasks ----
	limiter := mw.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst)
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddTicker("respawn", time.Duration(cfg.AI.RespawnCheckS)*time.Second, func(context.Context) {
		for _, room := range wm.Rooms() {
			if sp := spawners[room.ID]; sp != nil {
				sp.CheckRespawns()
			}
		}
	})
	sched.AddTicker("telemetry_flush", time.Duration(cfg.AI.TelemetryFlushMs)*time.Millisecond, func(ctx context.Context) {
		for _, room := range wm.Rooms() {
			if err := telemetry.Flush(ctx, room); err != nil {
				logger.Warn("telemetry flush failed", zap.String("room_id", room.ID), zap.Error(err))
			}
		}
	})
	sched.AddTicker("ratelimit_sweep", time.Minute, func(context.Context) {
		if n := limiter.Sweep(10 * time.Minute); n > 0 {
			logger.Debug("rate limiters swept", zap.Int("removed", n))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger, "/health", "/debug/stream"), mw.Recovery(logger))
	r.Use(limiter.Middleware())

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": wm.ActiveRoomCount()})
	})

	defaultRoom := cfg.AI.Rooms[0]
	debugH := apirest.NewDebugHandler(wm, telemetry, journal, db, defaultRoom, logger)
	debugH.Register(r)

	sseH := sse.NewHandler(pubsub, defaultRoom, logger)
	r.GET("/debug/stream", sseH.ServeSSE)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.DebugPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}

// loadConfig reads path, falling back to the built-in defaults when the
// file does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Printf("config: %s not found, using defaults", path)
		return config.Default(), nil
	}
	return config.Load(path)
}

func spawnPoints(in []config.SpawnConfig) []model.SpawnPoint {
	out := make([]model.SpawnPoint, 0, len(in))
	for _, s := range in {
		out = append(out, model.SpawnPoint{
			Room:           s.Room,
			Archetype:      s.Archetype,
			X:              s.X,
			Z:              s.Z,
			MaxCount:       s.MaxCount,
			Radius:         s.Radius,
			RespawnSeconds: s.RespawnS,
		})
	}
	return out
}

// setupRoom lays out the arena, places the player and builds the room's
// spawner from the persisted spawn points.
func setupRoom(room *world.Room, cfg *config.Config, db *gorm.DB, rng *rand.Rand, logger *zap.Logger) (*world.Spawner, error) {
	for _, b := range cfg.AI.Arena.Obstacles {
		room.AddObstacle(world.Box{
			Min: ai.Vec3{X: b.MinX, Y: 0, Z: b.MinZ},
			Max: ai.Vec3{X: b.MaxX, Y: b.Height, Z: b.MaxZ},
		})
	}
	p := cfg.AI.Player
	room.SetPlayer(p.ID, ai.Vec3{X: p.X, Z: p.Z}, p.HP)

	points, err := model.LoadSpawnPoints(db, room.ID)
	if err != nil {
		return nil, fmt.Errorf("load spawn points: %w", err)
	}
	return world.NewSpawner(room, cfg.Archetypes, points, rng, logger), nil
}

// arenaGrid builds the navigation grid shared by the layout of every room.
func arenaGrid(a config.ArenaConfig) *nav.Grid {
	if a.Width <= 0 || a.Height <= 0 {
		return nil
	}
	return nav.NewGrid(a.Width, a.Height, a.CellSize, ai.Vec3{X: a.OriginX, Z: a.OriginZ})
}
