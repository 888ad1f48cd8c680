package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress    string
	DatabaseURI   string
	HandoffSecret string
	TemplateMode  string // clone | reextract
	LogLevel      string
	LogFormat     string

	LLM   LLMConfig
	Print PrintConfig
}

type LLMConfig struct {
	Provider      string // openai | gemini
	Model         string
	MaxTokens     int
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
}

type PrintConfig struct {
	SinkURL  string
	Timeout  time.Duration
	Width    int
	Timezone string
}

// DefaultHandoffSecret only suits local runs; anyone knowing it can forge
// hand-off cookies.
const DefaultHandoffSecret = "pedidos-handoff-secret"

// New loads .env, then flags, then environment overrides.
func New() *Config {
	_ = godotenv.Load()

	cfg, err := Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

func Load(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("pedidos", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", "localhost:8080", "server address and port")
	fs.StringVar(&cfg.DatabaseURI, "d", "", "database URI (empty keeps orders in memory)")
	fs.StringVar(&cfg.HandoffSecret, "s", DefaultHandoffSecret, "template hand-off signing key")
	fs.StringVar(&cfg.TemplateMode, "template-mode", "clone", "template reuse: clone or reextract")
	fs.StringVar(&cfg.LLM.Provider, "llm", "openai", "inference provider: openai or gemini")
	fs.StringVar(&cfg.LLM.Model, "model", "", "inference model (provider default when empty)")
	fs.IntVar(&cfg.LLM.MaxTokens, "max-tokens", 500, "output token budget per extraction")
	fs.StringVar(&cfg.Print.SinkURL, "p", "", "print sink URL")
	fs.DurationVar(&cfg.Print.Timeout, "print-timeout", 5*time.Second, "print dispatch ceiling")
	fs.IntVar(&cfg.Print.Width, "print-width", 48, "thermal printer width in characters")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.RunAddress = getEnv("RUN_ADDRESS", cfg.RunAddress)
	cfg.DatabaseURI = getEnv("DATABASE_URI", cfg.DatabaseURI)
	cfg.HandoffSecret = getEnv("HANDOFF_SECRET", cfg.HandoffSecret)
	cfg.TemplateMode = getEnv("TEMPLATE_MODE", cfg.TemplateMode)
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	cfg.LLM.Provider = getEnv("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	cfg.LLM.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1")
	cfg.LLM.GeminiAPIKey = getEnv("GEMINI_API_KEY", "")

	cfg.Print.SinkURL = getEnv("PRINT_SINK_URL", cfg.Print.SinkURL)
	cfg.Print.Timezone = getEnv("PRINT_TIMEZONE", "America/Sao_Paulo")

	var err error
	if cfg.LLM.MaxTokens, err = getEnvInt("LLM_MAX_TOKENS", cfg.LLM.MaxTokens); err != nil {
		return nil, err
	}
	if cfg.Print.Width, err = getEnvInt("PRINT_WIDTH", cfg.Print.Width); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv("PRINT_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PRINT_TIMEOUT: %w", err)
		}
		cfg.Print.Timeout = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.TemplateMode {
	case "clone", "reextract":
	default:
		return fmt.Errorf("unknown template mode %q", c.TemplateMode)
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.Print.Width < 16 {
		return fmt.Errorf("print width too small: %d", c.Print.Width)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func (c *Config) UsesDefaultSecret() bool {
	return c.HandoffSecret == DefaultHandoffSecret
}
