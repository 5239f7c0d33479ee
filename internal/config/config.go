package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	Chat     Chat     `mapstructure:"chat"`
	Feeds    Feeds    `mapstructure:"feeds"`
}

// App holds general application configuration
type App struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
}

// AI holds LLM and embedding provider configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature"`
	Timeout        string  `mapstructure:"timeout"`
}

// Pipeline holds clustering and ranking configuration
type Pipeline struct {
	Topics              []string                      `mapstructure:"topics"`
	SimilarityThreshold float64                       `mapstructure:"similarity_threshold"`
	TopN                int                           `mapstructure:"top_n"`
	Keywords            map[string]float64            `mapstructure:"keywords"`
	TopicKeywords       map[string]map[string]float64 `mapstructure:"topic_keywords"`
}

// KeywordsFor returns the keyword weight table for a topic, falling back to
// the global table when no per-topic override exists.
func (p Pipeline) KeywordsFor(topic string) map[string]float64 {
	if kw, ok := p.TopicKeywords[topic]; ok && len(kw) > 0 {
		return kw
	}
	return p.Keywords
}

// Chat holds retrieval and conversation configuration
type Chat struct {
	RetrievalK      int `mapstructure:"retrieval_k"`
	MaxContextItems int `mapstructure:"max_context_items"`
	MaxHistoryTurns int `mapstructure:"max_history_turns"`
}

// Feeds holds article intake configuration
type Feeds struct {
	Sources   map[string][]string `mapstructure:"sources"` // topic -> feed URLs
	UserAgent string              `mapstructure:"user_agent"`
	Timeout   string              `mapstructure:"timeout"`
	MaxItems  int                 `mapstructure:"max_items_per_feed"`
}

var globalConfig *Config

// Load loads the configuration from .env, an optional config file, and the
// environment. Later calls return the already-loaded config.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newslens")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	config.App.DataDir = expandPath(config.App.DataDir)

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.data_dir", ".newslens-data")
	viper.SetDefault("app.log_level", "info")

	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.embedding_model", "gemini-embedding-001")
	viper.SetDefault("ai.gemini.temperature", 0.3)
	viper.SetDefault("ai.gemini.timeout", "30s")

	viper.SetDefault("pipeline.topics", []string{"sports", "lifestyle", "music", "finance"})
	viper.SetDefault("pipeline.similarity_threshold", 0.82)
	viper.SetDefault("pipeline.top_n", 5)
	viper.SetDefault("pipeline.keywords", map[string]float64{
		"breaking":   3,
		"update":     2,
		"exclusive":  2,
		"alert":      2,
		"warning":    1,
		"major":      1,
		"emergency":  1,
		"highlights": 1,
	})

	viper.SetDefault("chat.retrieval_k", 5)
	viper.SetDefault("chat.max_context_items", 5)
	viper.SetDefault("chat.max_history_turns", 6)

	viper.SetDefault("feeds.user_agent", "newslens/1.0")
	viper.SetDefault("feeds.timeout", "30s")
	viper.SetDefault("feeds.max_items_per_feed", 50)
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("app.data_dir", []string{
		"NEWSLENS_DATA_DIR",
	})

	bindEnvKeys("app.log_level", []string{
		"NEWSLENS_LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// validateConfig checks configuration values that would otherwise fail deep
// inside the pipeline.
func validateConfig(config *Config) error {
	t := config.Pipeline.SimilarityThreshold
	if t <= 0 || t > 1 {
		return fmt.Errorf("pipeline.similarity_threshold must be in (0, 1], got %v", t)
	}
	if len(config.Pipeline.Topics) == 0 {
		return fmt.Errorf("pipeline.topics must not be empty")
	}
	for kw, weight := range config.Pipeline.Keywords {
		if weight < 0 {
			return fmt.Errorf("pipeline.keywords[%q] must be non-negative, got %v", kw, weight)
		}
	}
	return nil
}

// expandPath expands ~ to the user home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
