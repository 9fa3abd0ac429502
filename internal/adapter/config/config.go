package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"planetbot/internal/adapter/logging"
	"planetbot/internal/domain/rules"
)

type Game struct {
	Addr string `yaml:"addr"`
	// Version is sent in the verChk frame.
	Version string `yaml:"version"`
	// Secret keys the per-command digest.
	Secret string `yaml:"secret"`
	// PositionKey keys the r8 coordinate digests.
	PositionKey string `yaml:"position_key"`
	// HeartbeatSeconds overrides the 30s keepalive.
	HeartbeatSeconds int `yaml:"heartbeat_seconds"`
}

// Account is a locally known game login.
type Account struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	UserID       string `yaml:"user_id"`
	HashPassword string `yaml:"hash_password"`
}

type Data struct {
	Dir     string `yaml:"dir"`
	MapsDir string `yaml:"maps_dir"`
}

type Store struct {
	// DSN selects Postgres. Empty keeps everything in memory.
	DSN        string `yaml:"dsn"`
	Migrations string `yaml:"migrations"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
	// EventsAddr serves the websocket notification stream.
	EventsAddr string `yaml:"events_addr"`
}

// Rules is the serialised form of rules.BotRules shared by the config file
// and the control API.
type Rules struct {
	Mode          string                     `json:"mode" yaml:"mode"`
	Evolve        bool                       `json:"evolve" yaml:"evolve"`
	HealThreshold *float64                   `json:"heal_threshold,omitempty" yaml:"heal_threshold"`
	Speed         *float64                   `json:"speed,omitempty" yaml:"speed"`
	LearnMove     *int                       `json:"learn_move,omitempty" yaml:"learn_move"`
	AvoidElite    bool                       `json:"avoid_elite" yaml:"avoid_elite"`
	Avoid         []string                   `json:"avoid" yaml:"avoid"`
	CatchRules    map[string]rules.CatchRule `json:"catch_rules" yaml:"catch_rules"`
	Advance       *rules.AdvanceRules        `json:"advance,omitempty" yaml:"advance"`
}

// BotRules fills unset fields from rules.Default and validates the result.
func (r Rules) BotRules() (rules.BotRules, error) {
	out := rules.Default()
	mode, err := rules.ParseMode(r.Mode)
	if err != nil {
		return rules.BotRules{}, err
	}
	out.Mode = mode
	out.Evolve = r.Evolve
	out.AvoidElite = r.AvoidElite
	if r.HealThreshold != nil {
		out.HealThreshold = *r.HealThreshold
	}
	if r.Speed != nil {
		out.Speed = *r.Speed
	}
	if r.LearnMove != nil {
		out.LearnMove = *r.LearnMove
	}
	if r.Advance != nil {
		out.Advance = *r.Advance
	}
	out.Avoid = append([]string(nil), r.Avoid...)
	for name, rule := range r.CatchRules {
		if rule.Name == "" {
			rule.Name = name
		}
		if rule.Status == "" {
			rule.Status = rules.AnyStatus
		}
		out.CatchRules[name] = rule
	}
	if err := out.Validate(); err != nil {
		return rules.BotRules{}, err
	}
	return out, nil
}

type File struct {
	Game     Game           `yaml:"game"`
	Accounts []Account      `yaml:"accounts"`
	Data     Data           `yaml:"data"`
	Store    Store          `yaml:"store"`
	HTTP     HTTP           `yaml:"http"`
	Log      logging.Config `yaml:"log"`
	Rules    Rules          `yaml:"rules"`
}

func Default() File {
	return File{
		Game: Game{Addr: "127.0.0.1:9339", Version: "157", HeartbeatSeconds: 30},
		Data: Data{Dir: "./data/csv", MapsDir: "./data/maps"},
		Store: Store{
			Migrations: "./migrations",
		},
		HTTP: HTTP{Addr: ":8080", EventsAddr: ":8081"},
		Log:  logging.Config{File: "./logs/planetbot.log", Level: "info", Console: true},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (File, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return File{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return File{}, fmt.Errorf("decode config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	if _, err := cfg.Rules.BotRules(); err != nil {
		return File{}, fmt.Errorf("config rules: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *File) {
	cfg.Store.DSN = stringEnv("PLANETBOT_DB_DSN", cfg.Store.DSN)
	cfg.HTTP.Addr = stringEnv("PLANETBOT_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.EventsAddr = stringEnv("PLANETBOT_EVENTS_ADDR", cfg.HTTP.EventsAddr)
	cfg.Game.Addr = stringEnv("PLANETBOT_GAME_ADDR", cfg.Game.Addr)
	cfg.Log.File = stringEnv("PLANETBOT_LOG_FILE", cfg.Log.File)
	cfg.Data.MapsDir = stringEnv("PLANETBOT_MAPS_DIR", cfg.Data.MapsDir)
	cfg.Data.Dir = stringEnv("PLANETBOT_DATA_DIR", cfg.Data.Dir)
	cfg.Game.HeartbeatSeconds = intEnv("PLANETBOT_HEARTBEAT_SECONDS", cfg.Game.HeartbeatSeconds)
}

func stringEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
