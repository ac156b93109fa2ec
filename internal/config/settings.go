package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DBConfig struct {
	// Driver is "mysql" or "sqlite".
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	PoolSize int    `mapstructure:"pool_size"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	Pass string `mapstructure:"pass"`
	DB   int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type ConversationConfig struct {
	WindowTurns  int `mapstructure:"window_turns"`
	PromptTurns  int `mapstructure:"prompt_turns"`
	CacheEntries int `mapstructure:"cache_entries"`
	// RecordFallbackTurns makes fallback answers part of the history window.
	RecordFallbackTurns bool `mapstructure:"record_fallback_turns"`
}

type ReferenceConfig struct {
	TTLHours int `mapstructure:"ttl_hours"`
}

func (r ReferenceConfig) TTL() time.Duration {
	return time.Duration(r.TTLHours) * time.Hour
}

type SynthesisConfig struct {
	ElevenLabsKey   string `mapstructure:"elevenlabs_key"`
	ElevenLabsVoice string `mapstructure:"elevenlabs_voice"`
	PiperURL        string `mapstructure:"piper_url"`
	PiperVoice      string `mapstructure:"piper_voice"`
}

type SpeechConfig struct {
	WhisperURL  string        `mapstructure:"whisper_url"`
	VADURL      string        `mapstructure:"vad_url"`
	Language    string        `mapstructure:"language"`
	MaxListen   time.Duration `mapstructure:"max_listen"`
	SilenceHold time.Duration `mapstructure:"silence_hold"`
}

type OllamaConfig struct {
	URLs []string `mapstructure:"urls"`
}

type Settings struct {
	Env          string             `mapstructure:"env"`
	Debug        bool               `mapstructure:"debug"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	DB           DBConfig           `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Reference    ReferenceConfig    `mapstructure:"reference"`
	Synthesis    SynthesisConfig    `mapstructure:"synthesis"`
	Speech       SpeechConfig       `mapstructure:"speech"`
	Ollama       OllamaConfig       `mapstructure:"ollama"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("debug", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:chemtalk.db?cache=shared")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.pass", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("conversation.window_turns", 20)
	v.SetDefault("conversation.prompt_turns", 10)
	v.SetDefault("conversation.cache_entries", 100)
	v.SetDefault("conversation.record_fallback_turns", false)
	v.SetDefault("reference.ttl_hours", 24)
	v.SetDefault("synthesis.elevenlabs_key", "")
	v.SetDefault("synthesis.elevenlabs_voice", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("synthesis.piper_url", "")
	v.SetDefault("synthesis.piper_voice", "en_US-lessac-medium")
	v.SetDefault("speech.whisper_url", "")
	v.SetDefault("speech.vad_url", "")
	v.SetDefault("speech.language", "en")
	v.SetDefault("speech.max_listen", 15*time.Second)
	v.SetDefault("speech.silence_hold", 800*time.Millisecond)
	v.SetDefault("ollama.urls", []string{})
}

// NewViper returns a viper that reads config_<env>.yaml from the working
// directory and lets environment variables override any key
// (conversation.window_turns -> CONVERSATION_WINDOW_TURNS).
func NewViper() *viper.Viper {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config_" + genEnv(v))
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	return v
}

func Load() (*Settings, *viper.Viper, error) {
	v := NewViper()
	s, err := LoadFrom(v)
	return s, v, err
}

func LoadFrom(v *viper.Viper) (*Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// the synthesis key also comes from its conventional variable name
	if settings.Synthesis.ElevenLabsKey == "" {
		settings.Synthesis.ElevenLabsKey = v.GetString(SynthesisKeyVar)
	}

	return &settings, nil
}

func genEnv(v *viper.Viper) string {
	env := v.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
