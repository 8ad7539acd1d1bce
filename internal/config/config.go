// Package config loads kgrag settings from TOML or YAML plus environment
// secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"medikacom/kgrag/internal/graph"
)

const (
	StoreSQLite = "sqlite"
	StoreNeo4j  = "neo4j"
)

// EnvConfigPath names the environment variable holding a config file path.
const EnvConfigPath = "KGRAG_CONFIG"

// StoreConfig selects the graph store.
type StoreConfig struct {
	Kind string `toml:"kind" yaml:"kind"`
	Path string `toml:"path" yaml:"path"`
}

// Neo4jConfig holds connection details; the password is read from PasswordEnv.
type Neo4jConfig struct {
	URI         string `toml:"uri" yaml:"uri"`
	Username    string `toml:"username" yaml:"username"`
	PasswordEnv string `toml:"password_env" yaml:"password_env"`
	Database    string `toml:"database" yaml:"database"`
}

// IndexConfig describes the chunk vector index.
type IndexConfig struct {
	Name       string `toml:"name" yaml:"name"`
	Property   string `toml:"property" yaml:"property"`
	Dimensions int    `toml:"dimensions" yaml:"dimensions"`
	Similarity string `toml:"similarity" yaml:"similarity"`
}

// ChunkingConfig configures token windows.
type ChunkingConfig struct {
	MaxTokens int    `toml:"max_tokens" yaml:"max_tokens"`
	Overlap   int    `toml:"overlap" yaml:"overlap"`
	Encoding  string `toml:"encoding" yaml:"encoding"`
}

// EmbeddingConfig configures the OpenAI-compatible embeddings endpoint.
type EmbeddingConfig struct {
	BaseURL           string  `toml:"base_url" yaml:"base_url"`
	APIKeyEnv         string  `toml:"api_key_env" yaml:"api_key_env"`
	Model             string  `toml:"model" yaml:"model"`
	BatchSize         int     `toml:"batch_size" yaml:"batch_size"`
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
	TimeoutSecs       int     `toml:"timeout_secs" yaml:"timeout_secs"`
}

// LLMConfig configures answer generation.
type LLMConfig struct {
	BaseURL     string  `toml:"base_url" yaml:"base_url"`
	APIKeyEnv   string  `toml:"api_key_env" yaml:"api_key_env"`
	Model       string  `toml:"model" yaml:"model"`
	Temperature float32 `toml:"temperature" yaml:"temperature"`
	MaxTokens   int     `toml:"max_tokens" yaml:"max_tokens"`
	TimeoutSecs int     `toml:"timeout_secs" yaml:"timeout_secs"`
}

// SearchConfig configures retrieval. A nil SequentialCategories selects the
// built-in list.
type SearchConfig struct {
	TopK                 int      `toml:"top_k" yaml:"top_k"`
	SequentialCategories []string `toml:"sequential_categories" yaml:"sequential_categories"`
}

// AnalyzeConfig configures chain integrity analysis.
type AnalyzeConfig struct {
	StaleDays int `toml:"stale_days" yaml:"stale_days"`
}

// Config is the root configuration.
type Config struct {
	Store     StoreConfig     `toml:"store" yaml:"store"`
	Neo4j     Neo4jConfig     `toml:"neo4j" yaml:"neo4j"`
	Index     IndexConfig     `toml:"index" yaml:"index"`
	Chunking  ChunkingConfig  `toml:"chunking" yaml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding" yaml:"embedding"`
	LLM       LLMConfig       `toml:"llm" yaml:"llm"`
	Search    SearchConfig    `toml:"search" yaml:"search"`
	Analyze   AnalyzeConfig   `toml:"analyze" yaml:"analyze"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Store.Kind == "" {
		cfg.Store.Kind = StoreSQLite
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "kgrag.db"
	}
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = "neo4j://localhost:7687"
	}
	if cfg.Neo4j.Username == "" {
		cfg.Neo4j.Username = "neo4j"
	}
	if cfg.Neo4j.PasswordEnv == "" {
		cfg.Neo4j.PasswordEnv = "NEO4J_PASSWORD"
	}
	if cfg.Index.Name == "" {
		cfg.Index.Name = "vector_school_content_chunks_index"
	}
	if cfg.Index.Property == "" {
		cfg.Index.Property = "embedding"
	}
	if cfg.Index.Dimensions == 0 {
		cfg.Index.Dimensions = 1024
	}
	if cfg.Index.Similarity == "" {
		cfg.Index.Similarity = string(graph.SimilarityCosine)
	}
	if cfg.Chunking.MaxTokens == 0 {
		cfg.Chunking.MaxTokens = 512
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Chunking.Encoding == "" {
		cfg.Chunking.Encoding = "cl100k_base"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:8080/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "EMBEDDING_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "intfloat/multilingual-e5-large-instruct"
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 60
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GROQ_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama-3.3-70b-versatile"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2048
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 10
	}
	if cfg.Analyze.StaleDays == 0 {
		cfg.Analyze.StaleDays = 30
	}
}

// Load reads a config from path. If the file does not exist, returns
// defaults. Files ending in .yaml or .yml are YAML; anything else is TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = toml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Resolve picks the config file: the explicit path, then $KGRAG_CONFIG,
// then ./kgrag.toml, then ~/.config/kgrag/config.toml. It returns "" when
// none applies.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	if _, err := os.Stat("kgrag.toml"); err == nil {
		return "kgrag.toml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "kgrag", "config.toml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Save writes cfg to path as TOML or YAML by extension.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = toml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.Kind != StoreSQLite && c.Store.Kind != StoreNeo4j {
		errs = append(errs, fmt.Errorf("store.kind must be %q or %q, got %q", StoreSQLite, StoreNeo4j, c.Store.Kind))
	}
	if c.Chunking.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("chunking.max_tokens must be positive, got %d", c.Chunking.MaxTokens))
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxTokens {
		errs = append(errs, fmt.Errorf("chunking.overlap must be in [0, max_tokens), got %d", c.Chunking.Overlap))
	}
	if c.Search.TopK <= 0 {
		errs = append(errs, fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK))
	}
	if err := c.VectorIndex().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("index: %w", err))
	}
	return errors.Join(errs...)
}

// VectorIndex returns the chunk index definition.
func (c *Config) VectorIndex() graph.VectorIndex {
	return graph.VectorIndex{
		Name:       c.Index.Name,
		Label:      graph.LabelChunk,
		Property:   c.Index.Property,
		Dimensions: c.Index.Dimensions,
		Similarity: graph.Similarity(strings.ToLower(c.Index.Similarity)),
	}
}

// Neo4jPassword reads the Neo4j password from the environment.
func (c *Config) Neo4jPassword() string { return os.Getenv(c.Neo4j.PasswordEnv) }

// EmbeddingAPIKey reads the embeddings API key from the environment.
func (c *Config) EmbeddingAPIKey() string { return os.Getenv(c.Embedding.APIKeyEnv) }

// LLMAPIKey reads the answer-generation API key from the environment.
func (c *Config) LLMAPIKey() string { return os.Getenv(c.LLM.APIKeyEnv) }

// EmbeddingTimeout returns the embeddings request timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSecs) * time.Second
}

// LLMTimeout returns the answer-generation request timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSecs) * time.Second
}
