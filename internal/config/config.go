package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings. Values come from the environment
// (optionally seeded from a .env file) and may be overridden by a YAML file.
type Config struct {
	AnalysisProvider string `yaml:"analysis_provider"`
	AnalysisModel    string `yaml:"analysis_model"`
	ImageModel       string `yaml:"image_model"`
	OllamaURL        string `yaml:"ollama_url"`

	Store   string `yaml:"store"`
	DataDir string `yaml:"data_dir"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	MaxAssets          int           `yaml:"max_assets"`
	MaxReferenceImages int           `yaml:"max_reference_images"`
	DefaultImageCount  int           `yaml:"default_image_count"`
	ExportDelay        time.Duration `yaml:"export_delay"`

	// PoseSeed makes pose selection reproducible when non-zero.
	PoseSeed int64 `yaml:"pose_seed"`
}

const (
	DefaultAnalysisModel = "gemini-2.5-flash"
	DefaultImageModel    = "gemini-2.5-flash-image"
)

// Load reads the environment and then applies the YAML file at path, if any.
func Load(path string) (*Config, error) {
	cfg := &Config{
		AnalysisProvider:   getEnvOrDefault("ANALYSIS_PROVIDER", "gemini"),
		AnalysisModel:      os.Getenv("ANALYSIS_MODEL"),
		ImageModel:         getEnvOrDefault("IMAGE_MODEL", DefaultImageModel),
		OllamaURL:          getEnvOrDefault("OLLAMA_URL", "http://localhost:11434"),
		Store:              getEnvOrDefault("ALBUMGEN_STORE", "file"),
		DataDir:            getEnvOrDefault("ALBUMGEN_DATA_DIR", defaultDataDir()),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		MaxAssets:          getEnvInt("MAX_ASSETS", 5),
		MaxReferenceImages: getEnvInt("MAX_REFERENCE_IMAGES", 3),
		DefaultImageCount:  getEnvInt("DEFAULT_IMAGE_COUNT", 3),
		ExportDelay:        getEnvDuration("EXPORT_DELAY", 500*time.Millisecond),
		PoseSeed:           int64(getEnvInt("POSE_SEED", 0)),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cfg.AnalysisModel == "" {
		cfg.AnalysisModel = defaultAnalysisModel(cfg.AnalysisProvider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.AnalysisProvider {
	case "gemini", "ollama", "openai":
	default:
		return fmt.Errorf("unsupported analysis provider: %s", c.AnalysisProvider)
	}
	if c.MaxAssets <= 0 {
		return fmt.Errorf("max_assets must be positive, got %d", c.MaxAssets)
	}
	if c.MaxReferenceImages <= 0 {
		return fmt.Errorf("max_reference_images must be positive, got %d", c.MaxReferenceImages)
	}
	if c.DefaultImageCount <= 0 {
		return fmt.Errorf("default_image_count must be positive, got %d", c.DefaultImageCount)
	}
	if c.ExportDelay < 0 {
		return fmt.Errorf("export_delay must not be negative")
	}
	return nil
}

func defaultAnalysisModel(provider string) string {
	switch provider {
	case "openai":
		return getEnvOrDefault("OPENAI_MODEL", "gpt-4o")
	case "ollama":
		return getEnvOrDefault("OLLAMA_MODEL", "mistral-small3.2:24b")
	default:
		return DefaultAnalysisModel
	}
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".albumgen"
	}
	return filepath.Join(dir, "albumgen")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
