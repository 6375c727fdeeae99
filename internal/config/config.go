package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/mathcraft/internal/core/kinematics"
	"github.com/zeusync/mathcraft/internal/core/lesson"
	"github.com/zeusync/mathcraft/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Engine   EngineConfig   `json:"engine" yaml:"engine"`
	Playback PlaybackConfig `json:"playback" yaml:"playback"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	Bounds   lesson.Bounds  `json:"bounds" yaml:"bounds"`
}

type ServerConfig struct {
	ListenAddr      string   `json:"listen_addr" yaml:"listen_addr"`
	ReadTimeout     Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    Duration `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	// EnforceBounds rejects inputs outside the lesson slider ranges.
	EnforceBounds bool `json:"enforce_bounds" yaml:"enforce_bounds"`
}

type LogConfig struct {
	Level log.Level `json:"level" yaml:"level"`
}

type EngineConfig struct {
	MaxFrames    int `json:"max_frames" yaml:"max_frames"`
	BatchWorkers int `json:"batch_workers" yaml:"batch_workers"`
	MaxBatchSize int `json:"max_batch_size" yaml:"max_batch_size"`
}

type PlaybackConfig struct {
	FrameInterval Duration `json:"frame_interval" yaml:"frame_interval"`
}

type CacheConfig struct {
	Shards          int `json:"shards" yaml:"shards"`
	EntriesPerShard int `json:"entries_per_shard" yaml:"entries_per_shard"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      "127.0.0.1:8080",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
		Log: LogConfig{Level: log.LevelInfo},
		Engine: EngineConfig{
			MaxFrames:    kinematics.DefaultMaxFrames,
			BatchWorkers: 4,
			MaxBatchSize: 256,
		},
		Playback: PlaybackConfig{FrameInterval: Duration(50 * time.Millisecond)},
		Cache: CacheConfig{
			Shards:          16,
			EntriesPerShard: 64,
		},
		Bounds: lesson.DefaultBounds(),
	}
}

// LoadJSON decodes config from a JSON reader on top of the defaults.
func LoadJSON(r io.Reader) (*Config, error) {
	c := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadYAML decodes config from a YAML reader on top of the defaults.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a config file, choosing the decoder by extension.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(f)
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", ErrInvalidConfig, filepath.Ext(path))
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("%w: server.listen_addr is empty", ErrInvalidConfig)
	}
	if c.Engine.MaxFrames <= 0 || c.Engine.MaxFrames > kinematics.MaxFramesLimit {
		return fmt.Errorf("%w: engine.max_frames must be in [1, %d]", ErrInvalidConfig, kinematics.MaxFramesLimit)
	}
	if c.Engine.BatchWorkers <= 0 {
		return fmt.Errorf("%w: engine.batch_workers must be positive", ErrInvalidConfig)
	}
	if c.Engine.MaxBatchSize <= 0 {
		return fmt.Errorf("%w: engine.max_batch_size must be positive", ErrInvalidConfig)
	}
	if c.Playback.FrameInterval < 0 {
		return fmt.Errorf("%w: playback.frame_interval is negative", ErrInvalidConfig)
	}
	if c.Cache.Shards <= 0 || c.Cache.EntriesPerShard <= 0 {
		return fmt.Errorf("%w: cache sizes must be positive", ErrInvalidConfig)
	}
	if err := c.Bounds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
