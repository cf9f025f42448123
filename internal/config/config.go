// Package config loads application configuration with multi-source
// priority: environment variables override the optional config file,
// which overrides built-in defaults.
//
// The config file is config.yaml, searched in ~/.smootie/ and the working
// directory. The only secret is the provider API key, read from
// DASHSCOPE_API_KEY and masked in any serialized form of the Config.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for validation failures, checked with errors.Is().
var (
	ErrInvalidPort        = errors.New("invalid port")
	ErrInvalidTemperature = errors.New("invalid temperature")
	ErrInvalidMaxTokens   = errors.New("invalid max tokens")
	ErrInvalidHistory     = errors.New("invalid history limit")
	ErrInvalidTimeout     = errors.New("invalid request timeout")
)

// Config stores the application configuration. The API key is masked in
// MarshalJSON and String; keep it that way when adding sensitive fields.
type Config struct {
	// HTTP server
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`

	// Provider (OpenAI-compatible endpoint)
	APIKey          string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked
	BaseURL         string `mapstructure:"base_url" json:"base_url"`
	ChatModel       string `mapstructure:"chat_model" json:"chat_model"`
	TranscribeModel string `mapstructure:"transcribe_model" json:"transcribe_model"`
	SpeechModel     string `mapstructure:"speech_model" json:"speech_model"`
	SpeechVoice     string `mapstructure:"speech_voice" json:"speech_voice"`

	// Chat tuning
	Persona         string        `mapstructure:"persona" json:"persona"`
	Temperature     float64       `mapstructure:"temperature" json:"temperature"`
	MaxTokens       int64         `mapstructure:"max_tokens" json:"max_tokens"`
	MaxHistoryTurns int           `mapstructure:"max_history_turns" json:"max_history_turns"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" json:"request_timeout"`

	// Static assets
	StaticDir string `mapstructure:"static_dir" json:"static_dir"`
	VideoDir  string `mapstructure:"video_dir" json:"video_dir"`

	// CORS
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load reads configuration from defaults, the optional config file, and
// the environment, then validates it.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.smootie")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; defaults plus env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 5001)

	v.SetDefault("base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("chat_model", "qwen-plus")
	v.SetDefault("transcribe_model", "paraformer-v2")
	v.SetDefault("speech_model", "qwen-tts")
	v.SetDefault("speech_voice", "Cherry")

	v.SetDefault("temperature", 0.8)
	v.SetDefault("max_tokens", 256)
	v.SetDefault("max_history_turns", 20)
	v.SetDefault("request_timeout", "2m")

	v.SetDefault("static_dir", "static")
	v.SetDefault("video_dir", "videos")

	v.SetDefault("cors_origins", []string{"*"})

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnv binds environment overrides explicitly. DASHSCOPE_API_KEY keeps
// its historical name; everything else uses the SMOOTIE_ prefix.
func bindEnv(v *viper.Viper) {
	mustBind := func(key string, envVars ...string) {
		if err := v.BindEnv(append([]string{key}, envVars...)...); err != nil {
			// Hardcoded keys cannot fail to bind; a panic here is a bug.
			panic(fmt.Sprintf("BUG: binding %q: %v", key, err))
		}
	}

	mustBind("api_key", "DASHSCOPE_API_KEY")
	mustBind("base_url", "SMOOTIE_BASE_URL")
	mustBind("chat_model", "SMOOTIE_CHAT_MODEL")
	mustBind("transcribe_model", "SMOOTIE_TRANSCRIBE_MODEL")
	mustBind("speech_model", "SMOOTIE_SPEECH_MODEL")
	mustBind("speech_voice", "SMOOTIE_SPEECH_VOICE")
	mustBind("host", "SMOOTIE_HOST")
	mustBind("port", "SMOOTIE_PORT")
	mustBind("static_dir", "SMOOTIE_STATIC_DIR")
	mustBind("video_dir", "SMOOTIE_VIDEO_DIR")
	mustBind("cors_origins", "SMOOTIE_CORS_ORIGINS")
	mustBind("log_level", "SMOOTIE_LOG_LEVEL")
}

// Validate fail-fast checks the value ranges. A missing API key is not an
// error here: the server starts and logs a warning, matching the
// historical behavior, so local OpenAI-compatible runtimes keep working.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidPort, c.Port)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %g (must be 0-2)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.MaxHistoryTurns < 2 {
		return fmt.Errorf("%w: %d (must hold at least one exchange)", ErrInvalidHistory, c.MaxHistoryTurns)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: %s (must be positive)", ErrInvalidTimeout, c.RequestTimeout)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// maskSecret hides a secret for safe logging, keeping just enough of the
// ends for debug utility on long values.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:2] + "********" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer so accidental printing never leaks the key.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
