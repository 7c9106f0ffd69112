package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/kasuganosora/enemyai/game/aimanager"
	"github.com/kasuganosora/enemyai/game/enemy"
	"github.com/kasuganosora/enemyai/game/world"
	"github.com/spf13/viper"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Server     ServerConfig               `mapstructure:"server"`
	Database   DatabaseConfig             `mapstructure:"database"`
	Cache      CacheConfig                `mapstructure:"cache"`
	AI         AIConfig                   `mapstructure:"ai"`
	Archetypes map[string]world.Archetype `mapstructure:"-"`
	Spawns     []SpawnConfig              `mapstructure:"spawns"`
}

type ServerConfig struct {
	Debug          bool    `mapstructure:"debug"`
	DebugPort      int     `mapstructure:"debug_port"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type AIConfig struct {
	TickMs           int                `mapstructure:"tick_ms"`
	RespawnCheckS    int                `mapstructure:"respawn_check_s"`
	TelemetryFlushMs int                `mapstructure:"telemetry_flush_ms"`
	TelemetryTTL     time.Duration      `mapstructure:"telemetry_ttl"`
	Seed             int64              `mapstructure:"seed"` // 0 seeds from the clock
	Rooms            []string           `mapstructure:"rooms"`
	Manager          aimanager.Settings `mapstructure:"manager"`
	Arena            ArenaConfig        `mapstructure:"arena"`
	Player           PlayerConfig       `mapstructure:"player"`
}

// ArenaConfig lays out the navigation grid and static obstacles of a room.
type ArenaConfig struct {
	Width     int         `mapstructure:"width"`
	Height    int         `mapstructure:"height"`
	CellSize  float64     `mapstructure:"cell_size"`
	OriginX   float64     `mapstructure:"origin_x"`
	OriginZ   float64     `mapstructure:"origin_z"`
	Obstacles []BoxConfig `mapstructure:"obstacles"`
}

// BoxConfig is an obstacle footprint resting on the ground plane.
type BoxConfig struct {
	MinX   float64 `mapstructure:"min_x"`
	MinZ   float64 `mapstructure:"min_z"`
	MaxX   float64 `mapstructure:"max_x"`
	MaxZ   float64 `mapstructure:"max_z"`
	Height float64 `mapstructure:"height"`
}

type PlayerConfig struct {
	ID string  `mapstructure:"id"`
	X  float64 `mapstructure:"x"`
	Z  float64 `mapstructure:"z"`
	HP float64 `mapstructure:"hp"`
}

// SpawnConfig seeds the spawn_points table when it is empty.
type SpawnConfig struct {
	Room      string  `mapstructure:"room"`
	Archetype string  `mapstructure:"archetype"`
	X         float64 `mapstructure:"x"`
	Z         float64 `mapstructure:"z"`
	MaxCount  int     `mapstructure:"max_count"`
	Radius    float64 `mapstructure:"radius"`
	RespawnS  float64 `mapstructure:"respawn_s"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.debug", false)
	v.SetDefault("server.debug_port", 8090)
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/enemyai.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("ai.tick_ms", 50)
	v.SetDefault("ai.respawn_check_s", 2)
	v.SetDefault("ai.telemetry_flush_ms", 500)
	v.SetDefault("ai.telemetry_ttl", "30s")
	v.SetDefault("ai.rooms", []string{"arena"})
	m := aimanager.DefaultSettings()
	v.SetDefault("ai.manager.throttle_interval", m.ThrottleInterval)
	v.SetDefault("ai.manager.max_active", m.MaxActive)
	v.SetDefault("ai.manager.max_distance", m.MaxDistance)
	v.SetDefault("ai.manager.full_ai_radius", m.FullAIRadius)
	v.SetDefault("ai.manager.visibility_multiplier", m.VisibilityMultiplier)
	v.SetDefault("ai.manager.group_awareness", m.GroupAwareness)
	v.SetDefault("ai.manager.awareness_radius", m.AwarenessRadius)
	v.SetDefault("ai.arena.width", 64)
	v.SetDefault("ai.arena.height", 64)
	v.SetDefault("ai.arena.cell_size", 1)
	v.SetDefault("ai.arena.origin_x", -32)
	v.SetDefault("ai.arena.origin_z", -32)
	v.SetDefault("ai.player.id", "player")
	v.SetDefault("ai.player.hp", 100)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg) // defaults only hold scalars
	cfg.Archetypes = world.DefaultArchetypes()
	cfg.Spawns = []SpawnConfig{
		{Room: "arena", Archetype: "grunt", X: 10, Z: 10, MaxCount: 4, Radius: 3, RespawnS: 10},
		{Room: "arena", Archetype: "archer", X: -12, Z: 8, MaxCount: 2, Radius: 2, RespawnS: 15},
		{Room: "arena", Archetype: "brute", X: 0, Z: -14, MaxCount: 1, Radius: 1, RespawnS: 30},
		{Room: "arena", Archetype: "skirmisher", X: 14, Z: -10, MaxCount: 3, Radius: 3, RespawnS: 8},
	}
	return cfg
}

// Load reads config from the given YAML file path. Archetypes in the file
// override the stock roster field by field; an archetype may name the
// stock one it extends with "base".
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ENEMYAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	archetypes, err := decodeArchetypes(v.GetStringMap("archetypes"))
	if err != nil {
		return nil, err
	}
	cfg.Archetypes = archetypes
	if !v.IsSet("spawns") {
		cfg.Spawns = Default().Spawns
	}
	return cfg, nil
}

func decodeArchetypes(raw map[string]interface{}) (map[string]world.Archetype, error) {
	stock := world.DefaultArchetypes()
	out := make(map[string]world.Archetype, len(stock)+len(raw))
	for name, a := range stock {
		out[name] = a
	}
	for name, body := range raw {
		fields, _ := body.(map[string]interface{})
		arch, ok := stock[name]
		if !ok {
			arch = stock["grunt"]
		}
		if b, set := fields["base"]; set {
			baseName, _ := b.(string)
			if arch, ok = stock[baseName]; !ok {
				return nil, fmt.Errorf("%w: archetype %q: unknown base %q", ErrInvalid, name, baseName)
			}
		}
		delete(fields, "base")
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &arch,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(fields); err != nil {
			return nil, fmt.Errorf("config: archetype %q: %w", name, err)
		}
		out[name] = arch
	}
	return out, nil
}

// Validate reports every problem in cfg, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, args...)...))
	}
	if c.Server.DebugPort < 0 || c.Server.DebugPort > 65535 {
		bad("server.debug_port %d out of range", c.Server.DebugPort)
	}
	switch c.Database.Mode {
	case "sqlite", "mysql":
	default:
		bad("database.mode %q", c.Database.Mode)
	}
	if c.AI.TickMs <= 0 {
		bad("ai.tick_ms must be positive")
	}
	if c.AI.RespawnCheckS <= 0 {
		bad("ai.respawn_check_s must be positive")
	}
	if c.AI.TelemetryFlushMs <= 0 {
		bad("ai.telemetry_flush_ms must be positive")
	}
	if c.AI.Manager.MaxActive < 0 {
		bad("ai.manager.max_active must not be negative")
	}
	if c.AI.Manager.ThrottleInterval < 0 {
		bad("ai.manager.throttle_interval must not be negative")
	}
	if len(c.AI.Rooms) == 0 {
		bad("ai.rooms is empty")
	}
	for name, a := range c.Archetypes {
		switch a.Kind {
		case world.KindFSM, "":
			if _, ok := enemy.VariantByName(a.Variant); a.Variant != "" && !ok {
				bad("archetype %q: variant %q", name, a.Variant)
			}
		case world.KindSteering:
		default:
			bad("archetype %q: kind %q", name, a.Kind)
		}
	}
	for i, s := range c.Spawns {
		if _, ok := c.Archetypes[s.Archetype]; !ok {
			bad("spawns[%d]: archetype %q", i, s.Archetype)
		}
		if s.MaxCount < 0 {
			bad("spawns[%d]: max_count %d", i, s.MaxCount)
		}
	}
	return errors.Join(errs...)
}

// TickInterval returns the room loop period.
func (c AIConfig) TickInterval() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}
