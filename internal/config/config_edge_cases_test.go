package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Edge case tests covering scenarios that could cause silent failures or
// unexpected merge/validation behavior.

// =============================================================================
// Merge edge cases
// =============================================================================

func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
server:
  max_top_k: 0
engine:
  cache_size: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".equipsearch.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Server.MaxTopK, "zero should not override default max_top_k")
	assert.Equal(t, 1000, cfg.Engine.CacheSize, "zero should not override default cache_size")
}

func TestLoad_PartialBM25Override_KeepsOtherDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
bm25:
  k1: 2.0
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".equipsearch.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.BM25.K1)
	assert.Equal(t, 0.75, cfg.BM25.B, "unset field should keep its default")
}

// =============================================================================
// Validation edge cases
// =============================================================================

func TestValidate_NegativeMaxTopK_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.MaxTopK = -5

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_top_k must be positive")
}

func TestValidate_BM25WeightsMustSumToOne(t *testing.T) {
	cfg := NewConfig()
	cfg.BM25.CharWeight = 0.9
	cfg.BM25.WordWeight = 0.9
	cfg.BM25.OverlapWeight = 0.9

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "char_weight + word_weight + overlap_weight must equal 1.0")
}

func TestValidate_K1MustBePositive(t *testing.T) {
	cfg := NewConfig()
	cfg.BM25.K1 = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "k1 must be positive")
}

func TestValidate_BOutOfRange_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.BM25.B = 1.5

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bm25.b must be between 0 and 1")
}

func TestValidate_FuzzyMinSimilarityOutOfRange_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Fuzzy.MinSimilarity = 1.5

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_similarity must be between 0 and 1")
}

func TestValidate_FuzzyNegativeMaxDistance_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Fuzzy.MaxDistance = -1

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_distance must be non-negative")
}

func TestValidate_ConfidenceTemperatureOutOfRange_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Confidence.Temperature = 3.0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature must be between 0.5 and 2.5")
}

func TestValidate_DiversifierMaxPerSubtypeBelowOne_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Diversifier.MaxPerSubtype = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_per_subtype must be >= 1")
}

func TestValidate_InvalidLogLevel_Rejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.LogLevel = "verbose"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level must be")
}

func TestLoad_NegativeMaxTopKInYAML_ReturnsValidationError(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
server:
  max_top_k: -10
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".equipsearch.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
}

// =============================================================================
// File permission edge cases
// =============================================================================

func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("test requires non-root user")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".equipsearch.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1"), 0o000))
	defer func() { _ = os.Chmod(configPath, 0o644) }()

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read")
}

// =============================================================================
// JSON round trip
// =============================================================================

func TestConfig_JSON_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.BM25.K1 = 1.8
	cfg.Reranker.BM25Weight = 0.4
	cfg.Server.Port = 9090

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var parsed Config
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, 1.8, parsed.BM25.K1)
	assert.Equal(t, 0.4, parsed.Reranker.BM25Weight)
	assert.Equal(t, 9090, parsed.Server.Port)
}

func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	invalidJSON := []byte("{invalid json")

	var cfg Config
	err := json.Unmarshal(invalidJSON, &cfg)

	require.Error(t, err)
}
