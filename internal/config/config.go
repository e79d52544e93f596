package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"camwatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"local"`
	Port         int    `yaml:"port" env:"PORT" env-default:"8080" validate:"gt=0,lt=65536"`
	LogDirectory string `yaml:"log_dir" env:"LOG_DIR" env-default:"./logs" validate:"required"`

	Cameras       []string `yaml:"cameras" env:"CAMERAS" env-separator:"," env-default:"0"`
	CameraScanMax int      `yaml:"camera_scan_max" env:"CAMERA_SCAN_MAX" env-default:"0" validate:"gte=0"`

	Poller   Poller   `yaml:"poller"`
	Detector Detector `yaml:"detector"`
	Storage  Storage  `yaml:"storage"`
	Recorder Recorder `yaml:"recorder"`
	Cutter   Cutter   `yaml:"cutter"`
	Auth     Auth     `yaml:"auth"`
	Preview  Preview  `yaml:"preview"`
}

type Poller struct {
	TargetFPS           float64       `yaml:"target_fps" env:"TARGET_FPS" env-default:"10" validate:"gt=0"`
	PollInterval        time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" env-default:"20ms" validate:"gt=0"`
	EventBuffer         int           `yaml:"event_buffer" env:"EVENT_BUFFER" env-default:"32" validate:"gt=0"`
	ReconnectDelay      time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY" env-default:"5s" validate:"gt=0"`
	ReconnectMaxDelay   time.Duration `yaml:"reconnect_max_delay" env:"RECONNECT_MAX_DELAY" env-default:"1m" validate:"gtefield=ReconnectDelay"`
	ReconnectMaxRetries int           `yaml:"reconnect_max_retries" env:"RECONNECT_MAX_RETRIES" env-default:"10" validate:"gte=0"`
	FrameWidth          int           `yaml:"frame_width" env:"FRAME_WIDTH" env-default:"0" validate:"gte=0"`
	FrameHeight         int           `yaml:"frame_height" env:"FRAME_HEIGHT" env-default:"0" validate:"gte=0"`
}

type Detector struct {
	ModelPath  string  `yaml:"model_path" env:"MODEL_PATH" env-default:"./models/yolov8n.onnx"`
	NamesPath  string  `yaml:"names_path" env:"NAMES_PATH" env-default:"./models/coco.names"`
	Confidence float64 `yaml:"confidence" env:"CONFIDENCE" env-default:"0.25" validate:"gt=0,lte=1"`
	NMS        float64 `yaml:"nms" env:"NMS_THRESHOLD" env-default:"0.45" validate:"gt=0,lte=1"`
	InputSize  int     `yaml:"input_size" env:"INPUT_SIZE" env-default:"640" validate:"gt=0"`
	Backend    string  `yaml:"backend" env:"DETECTOR_BACKEND" env-default:"cpu" validate:"oneof=cpu cuda opencl"`
}

type Storage struct {
	DBPath         string        `yaml:"db_path" env:"DB_PATH" env-default:"./data/camwatch.db" validate:"required"`
	SnapshotDir    string        `yaml:"snapshot_dir" env:"SNAPSHOT_DIR" env-default:"./images" validate:"required"`
	BufferLimit    int           `yaml:"buffer_limit" env:"BUFFER_LIMIT" env-default:"7" validate:"gt=0"`
	FlushInterval  time.Duration `yaml:"flush_interval" env:"FLUSH_INTERVAL" env-default:"30s" validate:"gt=0"`
	MaxSnapshotAge time.Duration `yaml:"max_snapshot_age" env:"MAX_SNAPSHOT_AGE" env-default:"0s"`
}

type Recorder struct {
	Enabled         bool          `yaml:"enabled" env:"RECORDER_ENABLED" env-default:"false"`
	Directory       string        `yaml:"directory" env:"RECORD_DIR" env-default:"./recordings"`
	SegmentDuration time.Duration `yaml:"segment_duration" env:"SEGMENT_DURATION" env-default:"1m" validate:"gt=0"`
	Codec           string        `yaml:"codec" env:"RECORD_CODEC" env-default:"mp4v" validate:"len=4"`
}

type Cutter struct {
	FFmpegPath  string  `yaml:"ffmpeg_path" env:"FFMPEG_PATH" env-default:"ffmpeg" validate:"required"`
	OutputDir   string  `yaml:"output_dir" env:"CLIP_DIR" env-default:"./clips"`
	VideoDir    string  `yaml:"video_dir" env:"VIDEO_DIR" env-default:"./videos"`
	PreSeconds  float64 `yaml:"pre_seconds" env:"PRE_SECONDS" env-default:"5" validate:"gte=0"`
	PostSeconds float64 `yaml:"post_seconds" env:"POST_SECONDS" env-default:"5" validate:"gte=0"`
}

type Auth struct {
	Password  string        `yaml:"password" env:"PASSWORD" env-default:"changeme" validate:"required"`
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"camwatch-dev-secret" validate:"required"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"12h" validate:"gt=0"`
}

type Preview struct {
	MaxWidth  int `yaml:"max_width" env:"PREVIEW_WIDTH" env-default:"640" validate:"gt=0"`
	MaxHeight int `yaml:"max_height" env:"PREVIEW_HEIGHT" env-default:"480" validate:"gt=0"`
	Quality   int `yaml:"quality" env:"PREVIEW_QUALITY" env-default:"70" validate:"gt=0,lte=100"`
}

// MustLoad is Load that panics, for use in main packages.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads an optional .env file, then the YAML file named by CONFIG_PATH
// (if any) overlaid with the environment, and validates the result.
func Load() (*Config, error) {
	const op = "config.Load"

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Sources converts the CAMERAS list into capture sources. Numeric entries are
// local device indices and keep the index as their id; URLs are numbered
// after the highest device index.
func (c *Config) Sources() []models.Source {
	sources := make([]models.Source, 0, len(c.Cameras))
	var urls []string

	for _, entry := range c.Cameras {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if index, err := strconv.Atoi(entry); err == nil && index >= 0 {
			sources = append(sources, models.Source{ID: index, Name: fmt.Sprintf("Camera %d", index)})
			continue
		}
		urls = append(urls, entry)
	}

	next := 0
	for _, s := range sources {
		if s.ID >= next {
			next = s.ID + 1
		}
	}
	for _, u := range urls {
		sources = append(sources, models.Source{ID: next, Name: fmt.Sprintf("Stream %d", next), URL: u})
		next++
	}

	return sources
}
