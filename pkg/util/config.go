package util

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/roadtrace/pkg"
	"github.com/spf13/viper"
)

type WeightsConfig struct {
	Direction   float64 `mapstructure:"direction" validate:"gte=0"`
	Containment float64 `mapstructure:"containment" validate:"gte=0"`
	Hop         float64 `mapstructure:"hop" validate:"gte=0"`
	Distance    float64 `mapstructure:"distance" validate:"gte=0"`
}

type MatcherConfig struct {
	// degrees
	CorridorHalfWidth float64 `mapstructure:"corridor_half_width" validate:"gt=0"`
	// meters
	HopSearchRadius float64       `mapstructure:"hop_search_radius" validate:"gte=0"`
	Weights         WeightsConfig `mapstructure:"weights"`
}

type SegmentConfig struct {
	MaxLength float64 `mapstructure:"max_length" validate:"gt=0"`
}

type PreprocessConfig struct {
	MinSpeed            float64 `mapstructure:"min_speed" validate:"gte=0"`
	HeadingWindow       int     `mapstructure:"heading_window" validate:"gte=1"`
	HeadingCourseWeight float64 `mapstructure:"heading_course_weight" validate:"gte=0,lte=1"`
	MinBearingDistance  float64 `mapstructure:"min_bearing_distance" validate:"gte=0"`
}

type TilesConfig struct {
	Dir       string  `mapstructure:"dir" validate:"required"`
	CellLevel int     `mapstructure:"cell_level" validate:"gte=1,lte=30"`
	CacheSize int     `mapstructure:"cache_size" validate:"gte=1"`
	MarginM   float64 `mapstructure:"margin_m" validate:"gte=0"`
}

type WatcherConfig struct {
	Dir          string        `mapstructure:"dir" validate:"required"`
	ProcessedDir string        `mapstructure:"processed_dir" validate:"required"`
	FailedDir    string        `mapstructure:"failed_dir" validate:"required"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	StableFor    time.Duration `mapstructure:"stable_for" validate:"gte=0"`
	Workers      int           `mapstructure:"workers" validate:"gte=1"`
	Prefix       string        `mapstructure:"prefix"`
	Extension    string        `mapstructure:"extension"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
	KML bool   `mapstructure:"kml"`
}

type APIConfig struct {
	Port      int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RateLimit float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int           `mapstructure:"rate_burst" validate:"gte=0"`
}

type Config struct {
	Matcher    MatcherConfig    `mapstructure:"matcher"`
	Segment    SegmentConfig    `mapstructure:"segment"`
	Preprocess PreprocessConfig `mapstructure:"preprocess"`
	Tiles      TilesConfig      `mapstructure:"tiles"`
	Watcher    WatcherConfig    `mapstructure:"watcher"`
	Output     OutputConfig     `mapstructure:"output"`
	API        APIConfig        `mapstructure:"api"`
}

func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("matcher.corridor_half_width", pkg.DEFAULT_CORRIDOR_HALF_WIDTH)
	v.SetDefault("matcher.hop_search_radius", pkg.DEFAULT_HOP_SEARCH_RADIUS)
	v.SetDefault("matcher.weights.direction", pkg.DEFAULT_WEIGHT_DIRECTION)
	v.SetDefault("matcher.weights.containment", pkg.DEFAULT_WEIGHT_CONTAINMENT)
	v.SetDefault("matcher.weights.hop", pkg.DEFAULT_WEIGHT_HOP)
	v.SetDefault("matcher.weights.distance", pkg.DEFAULT_WEIGHT_DISTANCE)

	v.SetDefault("segment.max_length", pkg.DEFAULT_MAX_SUBSEGMENT_M)

	v.SetDefault("preprocess.min_speed", pkg.DEFAULT_MIN_SPEED)
	v.SetDefault("preprocess.heading_window", 3)
	v.SetDefault("preprocess.heading_course_weight", 0.5)
	v.SetDefault("preprocess.min_bearing_distance", 2.0)

	v.SetDefault("tiles.dir", "./data/tiles")
	v.SetDefault("tiles.cell_level", pkg.DEFAULT_TILE_CELL_LEVEL)
	v.SetDefault("tiles.cache_size", 32)
	v.SetDefault("tiles.margin_m", 200.0)

	v.SetDefault("watcher.dir", "./data/raw")
	v.SetDefault("watcher.processed_dir", "./data/processed")
	v.SetDefault("watcher.failed_dir", "./data/failed")
	v.SetDefault("watcher.poll_interval", "2s")
	v.SetDefault("watcher.stable_for", "3s")
	v.SetDefault("watcher.workers", 4)
	v.SetDefault("watcher.prefix", "RecWay_")
	v.SetDefault("watcher.extension", ".csv")

	v.SetDefault("output.dir", "./data/output")
	v.SetDefault("output.kml", false)

	v.SetDefault("api.port", 6060)
	v.SetDefault("api.timeout", "60s")
	v.SetDefault("api.rate_limit", 20.0)
	v.SetDefault("api.rate_burst", 40)
}

func ReadConfig() error {
	SetDefaults()
	viper.SetConfigName("config")
	viper.AddConfigPath("./data/")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}

// LoadConfig reads ./data/config.yaml (optional), environment overrides and defaults, then validates.
func LoadConfig() (*Config, error) {
	if err := ReadConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, WrapErrorf(err, ErrBadParamInput, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the documented defaults without touching the filesystem or the global viper instance.
func DefaultConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, WrapErrorf(err, ErrInternalServerError, "unmarshal default config")
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return WrapErrorf(err, ErrBadParamInput, "invalid config")
	}
	return nil
}
