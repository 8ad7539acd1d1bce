package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"medikacom/kgrag/internal/answer"
	"medikacom/kgrag/internal/chunker"
	"medikacom/kgrag/internal/config"
	"medikacom/kgrag/internal/db"
	"medikacom/kgrag/internal/embedding"
	"medikacom/kgrag/internal/graph"
	"medikacom/kgrag/internal/logger"
	"medikacom/kgrag/internal/neo4j"
	"medikacom/kgrag/internal/search"
	"medikacom/kgrag/internal/sequence"
	"medikacom/kgrag/internal/tokenizer"
)

var (
	configPath string
	dbPath     string
	storeKind  string
	verbose    bool
	logJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "kgrag",
	Short: "School knowledge graph ingestion, retrieval and question answering",
	Long: `kgrag stores a school's profile as a property graph whose text lives in
ordered chunk chains, retrieves whole chains by vector similarity and answers
questions from the retrieved context.`,
	SilenceUsage: true,
}

// Execute runs the root command, cancelling its context on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (TOML or YAML); defaults to $KGRAG_CONFIG, ./kgrag.toml or ~/.config/kgrag/config.toml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the SQLite graph database")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "Graph store: sqlite or neo4j")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")
}

// loadConfig resolves the config file, applies flag overrides and validates
// the result. Variables from ./.env are loaded first so secrets resolve.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg := config.Default()
	if path := config.Resolve(configPath); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if storeKind != "" {
		cfg.Store.Kind = storeKind
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(out io.Writer) *slog.Logger {
	return logger.New(logger.Options{Verbose: verbose, JSON: logJSON, Output: out})
}

// graphStore is what the commands need from either backend.
type graphStore interface {
	graph.Store
	Snapshot(ctx context.Context) (*graph.Snapshot, error)
}

// openStore opens the configured backend.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (graphStore, error) {
	if cfg.Store.Kind == config.StoreNeo4j {
		s, err := neo4j.Open(ctx, neo4j.Options{
			URI:               cfg.Neo4j.URI,
			Username:          cfg.Neo4j.Username,
			Password:          cfg.Neo4jPassword(),
			Database:          cfg.Neo4j.Database,
			EmbeddingProperty: cfg.Index.Property,
		}, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	d, err := db.OpenDB(cfg.Store.Path, log.With(logger.Scope("db")))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// newEmbedder builds the embedding provider. Tests replace it.
var newEmbedder = func(cfg *config.Config, log *slog.Logger) (embedding.Provider, error) {
	return embedding.NewOpenAI(embedding.OpenAIConfig{
		BaseURL:           cfg.Embedding.BaseURL,
		APIKey:            cfg.EmbeddingAPIKey(),
		Model:             cfg.Embedding.Model,
		Dimensions:        cfg.Index.Dimensions,
		BatchSize:         cfg.Embedding.BatchSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Timeout:           cfg.EmbeddingTimeout(),
	}, log)
}

// app bundles the components one command invocation works with.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    graphStore
	embedder embedding.Provider
}

type appOptions struct {
	embedder  bool
	logOutput io.Writer
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(opts.logOutput)
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, store: store}
	if opts.embedder {
		if a.embedder, err = newEmbedder(cfg, log); err != nil {
			store.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) Close() error { return a.store.Close() }

// vectorIndex is the configured index sized to the vectors the embedder
// actually produces.
func (a *app) vectorIndex() graph.VectorIndex {
	idx := a.cfg.VectorIndex()
	if a.embedder != nil {
		idx.Dimensions = a.embedder.Dimension()
	}
	return idx
}

func newChunker(cfg *config.Config, log *slog.Logger) (*chunker.Chunker, error) {
	tok, err := tokenizer.NewTiktoken(cfg.Chunking.Encoding)
	if err != nil {
		return nil, err
	}
	return chunker.New(tok,
		chunker.WithMaxTokens(cfg.Chunking.MaxTokens),
		chunker.WithOverlap(cfg.Chunking.Overlap),
		chunker.WithLogger(log),
	), nil
}

func (a *app) writer() *sequence.Writer {
	return sequence.NewWriter(a.store, a.embedder, a.log)
}

func (a *app) engine() *search.Engine {
	return search.NewEngine(a.store, a.embedder, search.Options{
		Index:      a.cfg.Index.Name,
		Classifier: search.NewClassifier(a.cfg.Search.SequentialCategories),
	}, a.log)
}

func (a *app) pipeline() *answer.Pipeline {
	gen := answer.NewGenerator(answer.Config{
		BaseURL:     a.cfg.LLM.BaseURL,
		APIKey:      a.cfg.LLMAPIKey(),
		Model:       a.cfg.LLM.Model,
		Temperature: a.cfg.LLM.Temperature,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Timeout:     a.cfg.LLMTimeout(),
	}, a.log)
	return answer.NewPipeline(a.engine(), gen, a.cfg.Search.TopK, a.log)
}
