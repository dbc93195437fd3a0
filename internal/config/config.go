package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/cardtable/cardtable-go/internal/game"
	"github.com/cardtable/cardtable-go/internal/game/counters"
	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// EnvPrefix prefixes every environment override, e.g. CARDTABLE_LOGGING_LEVEL.
const EnvPrefix = "CARDTABLE"

// Catalog drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full server configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Rules   RulesConfig   `mapstructure:"rules"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	// ReplayLimit caps the snapshots kept per table; zero keeps all.
	ReplayLimit int `mapstructure:"replay_limit"`
	// ReplayDir receives a table's replay when its last client leaves.
	ReplayDir string `mapstructure:"replay_dir"`
}

type WebSocketConfig struct {
	Address      string        `mapstructure:"address"`
	Path         string        `mapstructure:"path"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	SendBuffer   int           `mapstructure:"send_buffer"`
}

type GRPCConfig struct {
	Address string `mapstructure:"address"`
}

// CatalogConfig selects where card data comes from.
type CatalogConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	SeedFile string `mapstructure:"seed_file"`
	Cache    bool   `mapstructure:"cache"`
}

// RulesConfig is the table setup handed to every engine.
type RulesConfig struct {
	ResourceCap int `mapstructure:"resource_cap"`
	OpeningHand int `mapstructure:"opening_hand"`

	// Letters maps a single cost letter to an element name.
	Letters  map[string]string `mapstructure:"letters"`
	Wildcard string            `mapstructure:"wildcard"`

	AttackDecay counters.Kind `mapstructure:"attack_decay"`

	Phases        []rules.PhaseSpec `mapstructure:"phases"`
	Reactions     game.Reactions    `mapstructure:"reactions"`
	OpponentBoard bool              `mapstructure:"opponent_board"`
	FirstPlayer   zone.Player       `mapstructure:"first_player"`
	Seed          int64             `mapstructure:"seed"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.read_limit", 64*1024)
	v.SetDefault("server.websocket.write_timeout", "10s")
	v.SetDefault("server.websocket.ping_interval", "30s")
	v.SetDefault("server.websocket.send_buffer", 64)
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.replay_limit", 200)
	v.SetDefault("server.replay_dir", "")

	v.SetDefault("catalog.driver", DriverMemory)
	v.SetDefault("catalog.dsn", "")
	v.SetDefault("catalog.seed_file", "")
	v.SetDefault("catalog.cache", true)

	def := game.DefaultOptions()
	v.SetDefault("rules.resource_cap", def.ResourceCap)
	v.SetDefault("rules.opening_hand", def.OpeningHand)
	v.SetDefault("rules.wildcard", string(def.Wildcard))
	v.SetDefault("rules.attack_decay", string(def.AttackDecay))
	v.SetDefault("rules.reactions.ready", def.Reactions.Ready)
	v.SetDefault("rules.reactions.draw", def.Reactions.Draw)
	v.SetDefault("rules.reactions.produce", def.Reactions.Produce)
	v.SetDefault("rules.reactions.poison", def.Reactions.Poison)
	v.SetDefault("rules.opponent_board", def.OpponentBoard)
	v.SetDefault("rules.first_player", def.FirstPlayer.String())
	v.SetDefault("rules.seed", 0)
}

// Load reads defaults, then the YAML file at path (if non-empty), then
// CARDTABLE_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
		stringToKindHookFunc(),
	)
}

// stringToKindHookFunc normalizes counter names so "Daze" and "daze" agree.
func stringToKindHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(counters.Kind("")) {
			return data, nil
		}
		return counters.Normalize(data.(string)), nil
	}
}

// Validate checks the values that Load cannot fix on its own.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, c.Logging.Format)
	}

	switch c.Catalog.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Catalog.DSN == "" {
			return fmt.Errorf("%w: catalog.dsn is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: catalog.driver %q", ErrInvalidConfig, c.Catalog.Driver)
	}

	if c.Server.WebSocket.Address == "" {
		return fmt.Errorf("%w: server.websocket.address is empty", ErrInvalidConfig)
	}
	if c.Server.ReplayLimit < 0 {
		return fmt.Errorf("%w: server.replay_limit must not be negative", ErrInvalidConfig)
	}

	if _, err := c.Rules.Options(); err != nil {
		return fmt.Errorf("%w: rules: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Options converts the rules section into engine options.
func (r RulesConfig) Options() (game.Options, error) {
	opts := game.DefaultOptions()
	if r.ResourceCap < 0 {
		return opts, fmt.Errorf("resource_cap must not be negative: %d", r.ResourceCap)
	}
	if r.ResourceCap > 0 {
		opts.ResourceCap = r.ResourceCap
	}
	if r.OpeningHand < 0 {
		return opts, fmt.Errorf("opening_hand must not be negative: %d", r.OpeningHand)
	}
	opts.OpeningHand = r.OpeningHand

	if len(r.Letters) > 0 {
		opts.Letters = make(map[rune]string, len(r.Letters))
		for k, name := range r.Letters {
			l, err := letter(k)
			if err != nil {
				return opts, fmt.Errorf("letters: %w", err)
			}
			if name == "" {
				return opts, fmt.Errorf("letters: %q has no element", k)
			}
			opts.Letters[l] = name
		}
	}
	if r.Wildcard != "" {
		w, err := letter(r.Wildcard)
		if err != nil {
			return opts, fmt.Errorf("wildcard: %w", err)
		}
		letters := opts.Letters
		if letters == nil {
			letters = resource.DefaultLetters
		}
		if _, clash := letters[w]; clash {
			return opts, fmt.Errorf("wildcard %q is also an element letter", r.Wildcard)
		}
		opts.Wildcard = w
	}
	if r.AttackDecay != "" {
		opts.AttackDecay = r.AttackDecay
	}

	for i, p := range r.Phases {
		if p.Name == "" {
			return opts, fmt.Errorf("phase %d has no name", i)
		}
	}
	opts.Phases = r.Phases
	opts.Reactions = r.Reactions
	opts.OpponentBoard = r.OpponentBoard
	if !r.FirstPlayer.Valid() {
		return opts, fmt.Errorf("first_player: unknown seat %d", int(r.FirstPlayer))
	}
	opts.FirstPlayer = r.FirstPlayer
	opts.Seed = r.Seed
	return opts, nil
}

// letter accepts a single ASCII letter; viper lower-cases map keys, so the
// result is always upper case.
func letter(s string) (rune, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r < 'A' || r > 'Z' {
		return 0, fmt.Errorf("%q is not a single letter", s)
	}
	return r, nil
}
