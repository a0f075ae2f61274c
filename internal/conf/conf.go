package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap is the root of the configuration file.
type Bootstrap struct {
	Server     *Server     `json:"server"`
	Data       *Data       `json:"data"`
	Moderation *Moderation `json:"moderation"`
	Sources    *Sources    `json:"sources"`
	Notify     *Notify     `json:"notify"`
	Scan       *Scan       `json:"scan"`
	Log        *Log        `json:"log"`
}

// Duration is a time.Duration that decodes from "30s" style strings.
type Duration struct {
	time.Duration
}

// NewDuration wraps d.
func NewDuration(d time.Duration) *Duration {
	return &Duration{Duration: d}
}

// AsDuration returns the wrapped value, zero for a nil receiver.
func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("conf: invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("conf: invalid duration %v", v)
	}
	return nil
}

type Log struct {
	Level string `json:"level"`
}

type Server struct {
	HTTP *Server_HTTP `json:"http"`
}

type Server_HTTP struct {
	Network string    `json:"network"`
	Addr    string    `json:"addr"`
	Timeout *Duration `json:"timeout"`
}

// Data configures where moderation state is kept.
type Data struct {
	// Backend is one of "memory", "redis", "postgres".
	Backend   string    `json:"backend"`
	Namespace string    `json:"namespace"`
	SealKey   string    `json:"seal_key"` // base64, 32 bytes; empty disables sealing
	Database  *Database `json:"database"`
	Redis     *Redis    `json:"redis"`
}

type Database struct {
	Driver string        `json:"driver"`
	Source string        `json:"source"`
	Pool   *DatabasePool `json:"pool"`
}

type DatabasePool struct {
	MaxOpenConns    int32 `json:"max_open_conns"`
	MinIdleConns    int32 `json:"min_idle_conns"`
	MaxConnLifetime int64 `json:"max_conn_lifetime"` // minutes
	MaxConnIdleTime int64 `json:"max_conn_idle_time"`
}

type Redis struct {
	Network      string    `json:"network"`
	Addr         string    `json:"addr"`
	Password     string    `json:"password"`
	DB           int       `json:"db"`
	ReadTimeout  *Duration `json:"read_timeout"`
	WriteTimeout *Duration `json:"write_timeout"`
}

// Moderation configures the scoring providers.
type Moderation struct {
	Quantized  *Moderation_Quantized  `json:"quantized"`
	Llm        *Moderation_Llm        `json:"llm"`
	ScoreCache *Moderation_ScoreCache `json:"score_cache"`
}

type Moderation_Quantized struct {
	Enabled bool      `json:"enabled"`
	Addr    string    `json:"addr"`
	Timeout *Duration `json:"timeout"`
}

type Moderation_Llm struct {
	Enabled bool `json:"enabled"`
	// Provider is "ollama" or "vllm".
	Provider  string    `json:"provider"`
	Endpoints []string  `json:"endpoints"`
	Model     string    `json:"model"`
	APIKey    string    `json:"api_key"`
	Timeout   *Duration `json:"timeout"`
	ReadyTTL  *Duration `json:"ready_ttl"`
	Replicas  int       `json:"replicas"`
}

type Moderation_ScoreCache struct {
	Enabled bool      `json:"enabled"`
	TTL     *Duration `json:"ttl"`
}

// Sources configures comment connectors.
type Sources struct {
	Importer *Sources_Importer `json:"importer"`
	Graph    *Sources_Graph    `json:"graph"`
	Session  *Sources_Session  `json:"session"`
	Static   *Sources_Static   `json:"static"`
}

type Sources_Importer struct {
	UserAgent      string    `json:"user_agent"`
	ConnectTimeout *Duration `json:"connect_timeout"`
	Timeout        *Duration `json:"timeout"`
}

type Sources_Graph struct {
	BaseURL    string    `json:"base_url"`
	MediaLimit int       `json:"media_limit"`
	Timeout    *Duration `json:"timeout"`
}

type Sources_Session struct {
	FeedURL string    `json:"feed_url"`
	Path    string    `json:"path"`
	Timeout *Duration `json:"timeout"`
}

type Sources_Static struct {
	Comments []string `json:"comments"`
}

type Notify struct {
	Telegram *Notify_Telegram `json:"telegram"`
}

type Notify_Telegram struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	Endpoint string `json:"endpoint"`
}

// Scan configures the scheduler.
type Scan struct {
	BatchSize  int  `json:"batch_size"`
	QueueSize  int  `json:"queue_size"`
	RunOnStart bool `json:"run_on_start"`
}
