package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
	Gemini     Gemini     `mapstructure:"gemini"`
	Reranker   Reranker   `mapstructure:"reranker"`
	Retrieval  Retrieval  `mapstructure:"retrieval"`
	Generation Generation `mapstructure:"generation"`
	Ingest     Ingest     `mapstructure:"ingest"`
	Jobs       Jobs       `mapstructure:"jobs"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Database holds PostgreSQL configuration
type Database struct {
	ConnectionString string `mapstructure:"url"`
}

// Gemini holds Google Gemini configuration
type Gemini struct {
	APIKey         string `mapstructure:"api_key"`
	ModelHigh      string `mapstructure:"model_high"`
	ModelLite      string `mapstructure:"model_lite"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// Reranker holds cross-encoder reranker service configuration
type Reranker struct {
	URL     string        `mapstructure:"url"`
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
	TopK    int           `mapstructure:"top_k"`
}

// Retrieval holds hybrid search tuning
type Retrieval struct {
	LaneK  int `mapstructure:"lane_k"`
	RRFK   int `mapstructure:"rrf_k"`
	FinalK int `mapstructure:"final_k"`
}

// Generation holds pipeline feature flags and limits
type Generation struct {
	UseLiteModel        bool          `mapstructure:"use_lite_model"`
	UseQueryGenerator   bool          `mapstructure:"use_query_generator"`
	UseStyleProfileKB   bool          `mapstructure:"use_style_profile_kb"`
	UseAutoRewrite      bool          `mapstructure:"use_auto_rewrite"`
	MaxParallelSections int           `mapstructure:"max_parallel_sections"`
	DesiredLength       int           `mapstructure:"desired_length"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
}

// Ingest holds document import configuration
type Ingest struct {
	ChunkSize      int `mapstructure:"chunk_size"`
	ChunkOverlap   int `mapstructure:"chunk_overlap"`
	EmbedBatchSize int `mapstructure:"embed_batch_size"`
}

// Jobs holds async job store configuration
type Jobs struct {
	TTL time.Duration `mapstructure:"ttl"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".notedraft")
		viper.SetConfigType("yaml")
	}

	// Set defaults
	setDefaults()

	// Bind environment variables
	bindEnvironmentVariables()

	// Enable automatic environment variable reading
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into struct
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

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
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "0s") // streaming responses manage their own deadline
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.cors_origins", []string{"*"})

	// Gemini defaults
	viper.SetDefault("gemini.model_high", "gemini-2.5-pro")
	viper.SetDefault("gemini.model_lite", "gemini-flash-lite-latest")
	viper.SetDefault("gemini.embedding_model", "gemini-embedding-001")

	// Reranker defaults
	viper.SetDefault("reranker.enabled", true)
	viper.SetDefault("reranker.timeout", "30s")
	viper.SetDefault("reranker.top_k", 5)

	// Retrieval defaults
	viper.SetDefault("retrieval.lane_k", 20)
	viper.SetDefault("retrieval.rrf_k", 60)
	viper.SetDefault("retrieval.final_k", 10)

	// Generation defaults
	viper.SetDefault("generation.use_lite_model", true)
	viper.SetDefault("generation.use_query_generator", true)
	viper.SetDefault("generation.use_style_profile_kb", true)
	viper.SetDefault("generation.use_auto_rewrite", true)
	viper.SetDefault("generation.max_parallel_sections", 4)
	viper.SetDefault("generation.desired_length", 2000)
	viper.SetDefault("generation.request_timeout", "10m")

	// Ingest defaults
	viper.SetDefault("ingest.chunk_size", 1000)
	viper.SetDefault("ingest.chunk_overlap", 200)
	viper.SetDefault("ingest.embed_batch_size", 16)

	// Jobs defaults
	viper.SetDefault("jobs.ttl", "1h")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Gemini API key - support multiple formats
	bindEnvKeys("gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	// Database connection string
	bindEnvKeys("database.url", []string{
		"DATABASE_URL",
		"POSTGRES_URL",
	})

	// Reranker service
	bindEnvKeys("reranker.url", []string{
		"RERANKER_URL",
	})

	// Server port (PaaS convention)
	bindEnvKeys("server.port", []string{
		"PORT",
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

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("server.port must be between 1 and 65535, got %d", config.Server.Port))
	}

	if config.Retrieval.LaneK < 1 {
		errors = append(errors, "retrieval.lane_k must be at least 1")
	}
	if config.Retrieval.RRFK < 1 {
		errors = append(errors, "retrieval.rrf_k must be at least 1")
	}
	if config.Retrieval.FinalK < 1 {
		errors = append(errors, "retrieval.final_k must be at least 1")
	}

	if config.Generation.MaxParallelSections < 1 {
		errors = append(errors, "generation.max_parallel_sections must be at least 1")
	}
	if config.Generation.DesiredLength < 1 {
		errors = append(errors, "generation.desired_length must be positive")
	}

	if config.Ingest.ChunkSize < 1 {
		errors = append(errors, "ingest.chunk_size must be positive")
	}
	if config.Ingest.ChunkOverlap < 0 || config.Ingest.ChunkOverlap >= config.Ingest.ChunkSize {
		errors = append(errors, "ingest.chunk_overlap must be non-negative and smaller than ingest.chunk_size")
	}

	if config.Reranker.TopK < 1 {
		errors = append(errors, "reranker.top_k must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// RerankerAvailable reports whether a reranker service is configured and enabled.
func (c *Config) RerankerAvailable() bool {
	return c.Reranker.Enabled && c.Reranker.URL != ""
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
