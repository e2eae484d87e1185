package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete search backend configuration.
// It mirrors the tunables in spec §6.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	BM25        BM25Config        `yaml:"bm25" json:"bm25"`
	Fuzzy       FuzzyConfig       `yaml:"fuzzy" json:"fuzzy"`
	Reranker    RerankerConfig    `yaml:"reranker" json:"reranker"`
	Diversifier DiversifierConfig `yaml:"diversifier" json:"diversifier"`
	Confidence  ConfidenceConfig  `yaml:"confidence" json:"confidence"`
	Engine      EngineConfig      `yaml:"engine" json:"engine"`
	Providers   ProvidersConfig   `yaml:"providers" json:"providers"`
	Server      ServerConfig      `yaml:"server" json:"server"`
}

// PathsConfig configures where the aggregated dataset and built index live.
type PathsConfig struct {
	DatasetPath string `yaml:"dataset_path" json:"dataset_path"`
	IndexPath   string `yaml:"index_path" json:"index_path"`
}

// BM25Config configures the hybrid word/char n-gram BM25 index (spec §4.2).
type BM25Config struct {
	K1              float64 `yaml:"k1" json:"k1"`
	B               float64 `yaml:"b" json:"b"`
	WordNgramMin    int     `yaml:"word_ngram_min" json:"word_ngram_min"`
	WordNgramMax    int     `yaml:"word_ngram_max" json:"word_ngram_max"`
	CharNgramMin    int     `yaml:"char_ngram_min" json:"char_ngram_min"`
	CharNgramMax    int     `yaml:"char_ngram_max" json:"char_ngram_max"`
	CharWeight      float64 `yaml:"char_weight" json:"char_weight"`
	WordWeight      float64 `yaml:"word_weight" json:"word_weight"`
	OverlapWeight   float64 `yaml:"overlap_weight" json:"overlap_weight"`
}

// FuzzyConfig configures the closed-vocabulary Levenshtein correction (spec §4.3).
type FuzzyConfig struct {
	MinTokenLength int     `yaml:"min_token_length" json:"min_token_length"`
	MaxDistance    int     `yaml:"max_distance" json:"max_distance"`
	MinSimilarity  float64 `yaml:"min_similarity" json:"min_similarity"`
}

// RerankerConfig configures the reranker scoring stage (spec §4.6).
type RerankerConfig struct {
	Enabled               bool    `yaml:"enabled" json:"enabled"`
	BM25Weight            float64 `yaml:"bm25_weight" json:"bm25_weight"`
	ModelBoost            float64 `yaml:"model_boost" json:"model_boost"`
	CategoryBoost         float64 `yaml:"category_boost" json:"category_boost"`
	AccessoryPenalty      float64 `yaml:"accessory_penalty" json:"accessory_penalty"`
	MissingModelPenalty   float64 `yaml:"missing_model_penalty" json:"missing_model_penalty"`
	HardTop1Equipment     bool    `yaml:"hard_top1_equipment" json:"hard_top1_equipment"`
	AccessoryBonusEnabled bool    `yaml:"accessory_bonus_enabled" json:"accessory_bonus_enabled"`
}

// DiversifierConfig configures navigation-intent diversification (spec §4.7).
type DiversifierConfig struct {
	Enabled          bool `yaml:"enabled" json:"enabled"`
	MaxPerSubtype    int  `yaml:"max_per_subtype" json:"max_per_subtype"`
	MaxCandidateMult int  `yaml:"max_candidate_mult" json:"max_candidate_mult"`
	MinCategoryFloor int  `yaml:"min_category_floor" json:"min_category_floor"`
}

// ConfidenceConfig configures the softmax-specificity confidence engine (spec §4.8).
type ConfidenceConfig struct {
	Temperature              float64 `yaml:"temperature" json:"temperature"`
	UseSpecificity            bool    `yaml:"use_specificity" json:"use_specificity"`
	MixedQueryPenaltyEnabled  bool    `yaml:"mixed_query_penalty_enabled" json:"mixed_query_penalty_enabled"`
}

// EngineConfig configures the IntegratedEngine orchestration (spec §4.5).
type EngineConfig struct {
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// ProvidersConfig configures the optional embedding/cross-encoder collaborators.
type ProvidersConfig struct {
	EmbeddingEnabled        bool   `yaml:"embedding_enabled" json:"embedding_enabled"`
	CrossEncoderEnabled     bool   `yaml:"cross_encoder_enabled" json:"cross_encoder_enabled"`
	CrossEncoderLibraryPath string `yaml:"cross_encoder_library_path" json:"cross_encoder_library_path"`
	CircuitMaxFailures      int    `yaml:"circuit_max_failures" json:"circuit_max_failures"`
	CircuitResetTimeout     string `yaml:"circuit_reset_timeout" json:"circuit_reset_timeout"`
}

// ServerConfig configures the HTTP search endpoint (spec §6).
type ServerConfig struct {
	Port     int    `yaml:"port" json:"port"`
	LogLevel string `yaml:"log_level" json:"log_level"`
	MaxTopK  int    `yaml:"max_top_k" json:"max_top_k"`
}

// NewConfig creates a new Config with the defaults named in spec §4 and §6.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DatasetPath: "dataset.json",
			IndexPath:   "index.bin",
		},
		BM25: BM25Config{
			K1:            1.5,
			B:             0.75,
			WordNgramMin:  1,
			WordNgramMax:  2,
			CharNgramMin:  3,
			CharNgramMax:  5,
			CharWeight:    0.6,
			WordWeight:    0.25,
			OverlapWeight: 0.15,
		},
		Fuzzy: FuzzyConfig{
			MinTokenLength: 4,
			MaxDistance:    2,
			MinSimilarity:  0.75,
		},
		Reranker: RerankerConfig{
			Enabled:               true,
			BM25Weight:            0.35,
			ModelBoost:            0.45,
			CategoryBoost:         0.30,
			AccessoryPenalty:      0.95,
			MissingModelPenalty:   0.55,
			HardTop1Equipment:     true,
			AccessoryBonusEnabled: true,
		},
		Diversifier: DiversifierConfig{
			Enabled:          true,
			MaxPerSubtype:    1,
			MaxCandidateMult: 8,
			MinCategoryFloor: 5,
		},
		Confidence: ConfidenceConfig{
			Temperature:              1.2,
			UseSpecificity:           true,
			MixedQueryPenaltyEnabled: false,
		},
		Engine: EngineConfig{
			CacheSize: 1000,
		},
		Providers: ProvidersConfig{
			EmbeddingEnabled:        false,
			CrossEncoderEnabled:     false,
			CrossEncoderLibraryPath: "",
			CircuitMaxFailures:      5,
			CircuitResetTimeout:     "30s",
		},
		Server: ServerConfig{
			Port:     8080,
			LogLevel: "info",
			MaxTopK:  30,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory conventions:
//   - $XDG_CONFIG_HOME/equipsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/equipsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "equipsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "equipsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "equipsearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration from the specified directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/equipsearch/config.yaml)
//  3. Project config (.equipsearch.yaml in dir)
//  4. Environment variables (highest precedence)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .equipsearch.yaml or .equipsearch.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".equipsearch.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".equipsearch.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.DatasetPath != "" {
		c.Paths.DatasetPath = other.Paths.DatasetPath
	}
	if other.Paths.IndexPath != "" {
		c.Paths.IndexPath = other.Paths.IndexPath
	}

	if other.BM25.K1 != 0 {
		c.BM25.K1 = other.BM25.K1
	}
	if other.BM25.B != 0 {
		c.BM25.B = other.BM25.B
	}
	if other.BM25.WordNgramMax != 0 {
		c.BM25.WordNgramMin = other.BM25.WordNgramMin
		c.BM25.WordNgramMax = other.BM25.WordNgramMax
	}
	if other.BM25.CharNgramMax != 0 {
		c.BM25.CharNgramMin = other.BM25.CharNgramMin
		c.BM25.CharNgramMax = other.BM25.CharNgramMax
	}
	if other.BM25.CharWeight != 0 || other.BM25.WordWeight != 0 || other.BM25.OverlapWeight != 0 {
		c.BM25.CharWeight = other.BM25.CharWeight
		c.BM25.WordWeight = other.BM25.WordWeight
		c.BM25.OverlapWeight = other.BM25.OverlapWeight
	}

	if other.Fuzzy.MinTokenLength != 0 {
		c.Fuzzy.MinTokenLength = other.Fuzzy.MinTokenLength
	}
	if other.Fuzzy.MaxDistance != 0 {
		c.Fuzzy.MaxDistance = other.Fuzzy.MaxDistance
	}
	if other.Fuzzy.MinSimilarity != 0 {
		c.Fuzzy.MinSimilarity = other.Fuzzy.MinSimilarity
	}

	// Reranker weights: only override fields the project file actually sets.
	if other.Reranker.BM25Weight != 0 {
		c.Reranker.BM25Weight = other.Reranker.BM25Weight
	}
	if other.Reranker.ModelBoost != 0 {
		c.Reranker.ModelBoost = other.Reranker.ModelBoost
	}
	if other.Reranker.CategoryBoost != 0 {
		c.Reranker.CategoryBoost = other.Reranker.CategoryBoost
	}
	if other.Reranker.AccessoryPenalty != 0 {
		c.Reranker.AccessoryPenalty = other.Reranker.AccessoryPenalty
	}
	if other.Reranker.MissingModelPenalty != 0 {
		c.Reranker.MissingModelPenalty = other.Reranker.MissingModelPenalty
	}

	if other.Diversifier.MaxPerSubtype != 0 {
		c.Diversifier.MaxPerSubtype = other.Diversifier.MaxPerSubtype
	}
	if other.Diversifier.MaxCandidateMult != 0 {
		c.Diversifier.MaxCandidateMult = other.Diversifier.MaxCandidateMult
	}
	if other.Diversifier.MinCategoryFloor != 0 {
		c.Diversifier.MinCategoryFloor = other.Diversifier.MinCategoryFloor
	}

	if other.Confidence.Temperature != 0 {
		c.Confidence.Temperature = other.Confidence.Temperature
	}

	if other.Engine.CacheSize != 0 {
		c.Engine.CacheSize = other.Engine.CacheSize
	}

	if other.Providers.CrossEncoderLibraryPath != "" {
		c.Providers.CrossEncoderLibraryPath = other.Providers.CrossEncoderLibraryPath
	}
	if other.Providers.CircuitMaxFailures != 0 {
		c.Providers.CircuitMaxFailures = other.Providers.CircuitMaxFailures
	}
	if other.Providers.CircuitResetTimeout != "" {
		c.Providers.CircuitResetTimeout = other.Providers.CircuitResetTimeout
	}

	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.MaxTopK != 0 {
		c.Server.MaxTopK = other.Server.MaxTopK
	}
}

// applyEnvOverrides applies the env-var tunables named in spec §6.
// Env vars take precedence over both defaults and config file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SEARCH_RERANKER_ENABLED"); v != "" {
		c.Reranker.Enabled = parseBool(v, c.Reranker.Enabled)
	}
	if v := os.Getenv("SEARCH_NAV_INTENT_ENABLED"); v != "" {
		c.Diversifier.Enabled = parseBool(v, c.Diversifier.Enabled)
	}
	if v := os.Getenv("SEARCH_NAV_MAX_PER_SUBTYPE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			c.Diversifier.MaxPerSubtype = n
		}
	}
	if v := os.Getenv("SEARCH_NAV_MAX_CANDIDATE_MULT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			c.Diversifier.MaxCandidateMult = n
		}
	}
	if v := os.Getenv("CONF_TEMPERATURE"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0.5 && f <= 2.5 {
			c.Confidence.Temperature = f
		}
	}
	if v := os.Getenv("CONF_USE_SPECIFICITY"); v != "" {
		c.Confidence.UseSpecificity = parseBool(v, c.Confidence.UseSpecificity)
	}
	if v := os.Getenv("CONF_MIXED_QUERY_PENALTY_ENABLED"); v != "" {
		c.Confidence.MixedQueryPenaltyEnabled = parseBool(v, c.Confidence.MixedQueryPenaltyEnabled)
	}
	if v := os.Getenv("RERANK_BM25_WEIGHT"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Reranker.BM25Weight = f
		}
	}
	if v := os.Getenv("RERANK_MODEL_BOOST"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Reranker.ModelBoost = f
		}
	}
	if v := os.Getenv("RERANK_CATEGORY_BOOST"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Reranker.CategoryBoost = f
		}
	}
	if v := os.Getenv("RERANK_ACCESSORY_PENALTY"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Reranker.AccessoryPenalty = f
		}
	}
	if v := os.Getenv("RERANK_MISSING_MODEL_PENALTY"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Reranker.MissingModelPenalty = f
		}
	}
	if v := os.Getenv("RERANK_HARD_TOP1_EQUIPMENT"); v != "" {
		c.Reranker.HardTop1Equipment = parseBool(v, c.Reranker.HardTop1Equipment)
	}
	if v := os.Getenv("SEARCH_ACCESSORY_BONUS_ENABLED"); v != "" {
		c.Reranker.AccessoryBonusEnabled = parseBool(v, c.Reranker.AccessoryBonusEnabled)
	}
	if v := os.Getenv("MAX_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.MaxTopK = n
		}
	}
	if v := os.Getenv("SEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// parseBool parses "true"/"false"/"1"/"0" (case-insensitive), falling back
// to the existing value on anything else.
func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return fallback
	}
}

// parseFloat64 parses a string to float64, used for config/env parsing.
func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.BM25.K1 <= 0 {
		return fmt.Errorf("bm25.k1 must be positive, got %f", c.BM25.K1)
	}
	if c.BM25.B < 0 || c.BM25.B > 1 {
		return fmt.Errorf("bm25.b must be between 0 and 1, got %f", c.BM25.B)
	}

	weightSum := c.BM25.CharWeight + c.BM25.WordWeight + c.BM25.OverlapWeight
	if math.Abs(weightSum-1.0) > 0.01 {
		return fmt.Errorf("bm25 char_weight + word_weight + overlap_weight must equal 1.0, got %.2f", weightSum)
	}

	if c.Fuzzy.MaxDistance < 0 {
		return fmt.Errorf("fuzzy.max_distance must be non-negative, got %d", c.Fuzzy.MaxDistance)
	}
	if c.Fuzzy.MinSimilarity < 0 || c.Fuzzy.MinSimilarity > 1 {
		return fmt.Errorf("fuzzy.min_similarity must be between 0 and 1, got %f", c.Fuzzy.MinSimilarity)
	}

	if c.Confidence.Temperature < 0.5 || c.Confidence.Temperature > 2.5 {
		return fmt.Errorf("confidence.temperature must be between 0.5 and 2.5, got %f", c.Confidence.Temperature)
	}

	if c.Diversifier.MaxPerSubtype < 1 {
		return fmt.Errorf("diversifier.max_per_subtype must be >= 1, got %d", c.Diversifier.MaxPerSubtype)
	}
	if c.Diversifier.MaxCandidateMult < 1 {
		return fmt.Errorf("diversifier.max_candidate_mult must be >= 1, got %d", c.Diversifier.MaxCandidateMult)
	}

	if c.Server.MaxTopK <= 0 {
		return fmt.Errorf("server.max_top_k must be positive, got %d", c.Server.MaxTopK)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}
