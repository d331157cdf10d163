// Command callanalyzer segments an earnings call transcript, indexes it for
// semantic retrieval, and answers questions about it, either one-shot via
// -query or through an interactive prompt.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/vishwa0198/earnings-call-analyzer/internal/answer"
	"github.com/vishwa0198/earnings-call-analyzer/internal/config"
	"github.com/vishwa0198/earnings-call-analyzer/internal/indexer"
	"github.com/vishwa0198/earnings-call-analyzer/internal/observe"
	"github.com/vishwa0198/earnings-call-analyzer/internal/resilience"
	"github.com/vishwa0198/earnings-call-analyzer/internal/retrieval"
	"github.com/vishwa0198/earnings-call-analyzer/internal/topics"
	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript"
	"github.com/vishwa0198/earnings-call-analyzer/internal/transcript/namematch"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/provider/embeddings"
	ollamaembed "github.com/vishwa0198/earnings-call-analyzer/pkg/provider/embeddings/ollama"
	oaembed "github.com/vishwa0198/earnings-call-analyzer/pkg/provider/embeddings/openai"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/provider/llm"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/provider/llm/anyllm"
	oallm "github.com/vishwa0198/earnings-call-analyzer/pkg/provider/llm/openai"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex"
	"github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex/memory"
	pgindex "github.com/vishwa0198/earnings-call-analyzer/pkg/vectorindex/postgres"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	transcriptPath := flag.String("transcript", "", "path to the raw transcript text file to ingest")
	query := flag.String("query", "", "answer a single question and exit (JSON output)")
	showTopics := flag.Bool("topics", false, "extract and print the key topics after ingestion")
	flag.Parse()

	// API keys commonly live in a local .env during development.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "callanalyzer: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.Logging.Level))
	slog.Info("callanalyzer starting",
		"version", version,
		"config", *configPath,
		"index_backend", cfg.Index.Backend,
		"log_level", cfg.Logging.Level,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise metrics provider", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	embedder, err := buildEmbeddings(cfg.Providers.Embeddings)
	if err != nil {
		slog.Error("failed to create embeddings provider", "err", err)
		return 1
	}
	slog.Info("provider created", "kind", "embeddings",
		"name", cfg.Providers.Embeddings.Name, "model", embedder.ModelID())

	generator, err := buildGenerator(cfg.Providers.LLM)
	if err != nil {
		slog.Error("failed to create generation provider", "err", err)
		return 1
	}
	if generator != nil {
		slog.Info("provider created", "kind", "llm",
			"name", cfg.Providers.LLM.Name, "model", generator.ModelID())
	}

	retry := resilience.Config{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff(),
		MaxBackoff:     cfg.Retry.MaxBackoff(),
		Timeout:        cfg.Retry.Timeout(),
	}

	// ── Index backend ─────────────────────────────────────────────────────────
	factory, durable, closeIndex, err := buildIndexFactory(ctx, cfg.Index, embedder.Dimensions())
	if err != nil {
		slog.Error("failed to prepare index backend", "err", err)
		return 1
	}
	defer closeIndex()

	idxr := indexer.New(embedder, factory,
		indexer.WithChunkSize(cfg.Chunking.MaxChars),
		indexer.WithOverlap(cfg.Chunking.Overlap),
		indexer.WithRetry(retry),
	)

	// ── Ingest ────────────────────────────────────────────────────────────────
	var doc *transcript.Document
	if *transcriptPath != "" {
		doc, err = ingest(ctx, cfg, idxr, *transcriptPath)
		if err != nil {
			slog.Error("ingestion failed", "err", err)
			return 1
		}
	} else if err := restoreIndex(ctx, cfg.Index, idxr, durable, embedder.Dimensions()); err != nil {
		slog.Error("failed to restore index", "err", err)
		return 1
	}

	if !idxr.Ready() {
		fmt.Fprintln(os.Stderr, "callanalyzer: nothing to query; pass -transcript or configure index.persist_path with an existing snapshot")
		return 1
	}

	if *showTopics && doc != nil {
		printTopics(ctx, generator, retry, doc)
	}

	// ── Query ─────────────────────────────────────────────────────────────────
	engine := retrieval.New(embedder, idxr,
		retrieval.WithTopK(cfg.Retrieval.TopK),
		retrieval.WithThresholds(retrieval.Thresholds{
			High:   cfg.Retrieval.Confidence.High,
			Medium: cfg.Retrieval.Confidence.Medium,
			Floor:  cfg.Retrieval.Confidence.Floor,
		}),
		retrieval.WithRetry(retry),
	)

	var composer *answer.Composer
	if generator != nil {
		composer = answer.New(generator,
			answer.WithContextBudget(cfg.Answer.ContextBudget),
			answer.WithMaxTokens(cfg.Answer.MaxTokens),
			answer.WithTemperature(cfg.Answer.Temperature),
			answer.WithRetry(retry),
		)
	}

	if *query != "" {
		return answerOnce(ctx, engine, composer, *query)
	}
	return interact(ctx, engine, composer)
}

// loadConfig reads the config file at path, falling back to built-in defaults
// when the default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		explicit := false
		flag.Visit(func(f *flag.Flag) {
			if f.Name == "config" {
				explicit = true
			}
		})
		if !explicit {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("config file %q not found; copy configs/example.yaml to get started", path)
	}
	return nil, err
}

// buildEmbeddings instantiates the configured embeddings provider.
func buildEmbeddings(entry config.ProviderEntry) (embeddings.Provider, error) {
	switch entry.Name {
	case "openai":
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(apiKey(entry, "OPENAI_API_KEY"), entry.Model, opts...)
	case "ollama":
		var opts []ollamaembed.Option
		if entry.Dimensions > 0 {
			opts = append(opts, ollamaembed.WithDimensions(entry.Dimensions))
		}
		return ollamaembed.New(entry.BaseURL, entry.Model, opts...)
	case "":
		return nil, fmt.Errorf("providers.embeddings.name is required")
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", entry.Name)
	}
}

// buildGenerator instantiates the configured generation provider. An empty
// name is allowed and yields a nil generator: retrieval still works, answers
// degrade to raw excerpts.
func buildGenerator(entry config.ProviderEntry) (llm.Generator, error) {
	switch entry.Name {
	case "":
		return nil, nil
	case "openai":
		var opts []oallm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
		}
		return oallm.New(apiKey(entry, "OPENAI_API_KEY"), entry.Model, opts...)
	default:
		var opts []anyllmlib.Option
		if key := apiKey(entry, ""); key != "" {
			opts = append(opts, anyllmlib.WithAPIKey(key))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(entry.Name, entry.Model, opts...)
	}
}

// apiKey resolves a provider's API key: the config value wins, then the named
// environment variable.
func apiKey(entry config.ProviderEntry, envVar string) string {
	if entry.APIKey != "" {
		return entry.APIKey
	}
	if envVar != "" {
		return os.Getenv(envVar)
	}
	return ""
}

// buildIndexFactory returns the staging-index factory for the configured
// backend, the backend's durable index when it has one, and a cleanup
// function.
//
// The postgres backend keeps one connection pool for the process lifetime.
// Each factory call stages a rebuild into a separate table, so the durable
// table keeps serving queries until the staged build is promoted.
func buildIndexFactory(ctx context.Context, cfg config.IndexConfig, dims int) (indexer.Factory, vectorindex.Index, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pg, err := pgindex.New(ctx, cfg.PostgresDSN, dims)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres index: %w", err)
		}
		factory := func(ctx context.Context) (vectorindex.Index, error) {
			return pg.Stage(ctx)
		}
		return factory, pg, pg.Close, nil
	default:
		factory := func(context.Context) (vectorindex.Index, error) {
			return memory.New(dims), nil
		}
		return factory, nil, func() {}, nil
	}
}

// ingest runs the segmentation pipeline on the transcript file and rebuilds
// the index from the resulting chunks. With the memory backend and a persist
// path configured, the rebuilt index is snapshotted to disk.
func ingest(ctx context.Context, cfg *config.Config, idxr *indexer.Indexer, path string) (*transcript.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	var popts []transcript.PipelineOption
	if len(cfg.Pipeline.BoundaryPhrases) > 0 {
		popts = append(popts, transcript.WithBoundaryPhrases(cfg.Pipeline.BoundaryPhrases))
	}
	if len(cfg.Pipeline.QAPhrases) > 0 {
		popts = append(popts, transcript.WithQAPhrases(cfg.Pipeline.QAPhrases))
	}
	popts = append(popts,
		transcript.WithMatcher(namematch.New(namematch.WithThreshold(cfg.Pipeline.FuzzyThreshold))),
		transcript.WithMetadataWindow(cfg.Pipeline.MetadataWindow),
	)

	doc, err := transcript.NewPipeline(popts...).Process(ctx, string(raw), nil)
	if err != nil {
		return nil, fmt.Errorf("segment transcript: %w", err)
	}
	if err := transcript.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	if err := idxr.Rebuild(ctx, doc.Chunks); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	if cfg.Index.Backend == config.BackendMemory && cfg.Index.PersistPath != "" {
		if err := persistSnapshot(ctx, idxr, cfg.Index.PersistPath); err != nil {
			slog.Warn("failed to persist index snapshot", "err", err)
		}
	}
	return doc, nil
}

// restoreIndex commits previously built index contents for retrieval: the
// backend's durable index when it already holds entries (postgres), or a
// persisted memory snapshot when configured and present.
func restoreIndex(ctx context.Context, cfg config.IndexConfig, idxr *indexer.Indexer, durable vectorindex.Index, dims int) error {
	if durable != nil {
		n, err := durable.Len(ctx)
		if err != nil {
			return fmt.Errorf("inspect durable index: %w", err)
		}
		if n == 0 {
			return nil
		}
		return idxr.Adopt(ctx, durable)
	}

	if cfg.Backend != config.BackendMemory || cfg.PersistPath == "" {
		return nil
	}
	if _, err := os.Stat(cfg.PersistPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	idx := memory.New(dims)
	if err := idx.Load(ctx, cfg.PersistPath); err != nil {
		return fmt.Errorf("load snapshot %q: %w", cfg.PersistPath, err)
	}
	if err := idxr.Adopt(ctx, idx); err != nil {
		return err
	}
	slog.Info("index snapshot restored", "path", cfg.PersistPath)
	return nil
}

func persistSnapshot(ctx context.Context, idxr *indexer.Indexer, path string) error {
	idx, err := idxr.Index()
	if err != nil {
		return err
	}
	p, ok := idx.(vectorindex.Persister)
	if !ok {
		return fmt.Errorf("index backend does not support persistence")
	}
	if err := p.Persist(ctx, path); err != nil {
		return err
	}
	slog.Info("index snapshot written", "path", path)
	return nil
}

// printTopics extracts and prints the call's key topics. Extraction failure
// is reported but never fatal.
func printTopics(ctx context.Context, generator llm.Generator, retry resilience.Config, doc *transcript.Document) {
	if generator == nil {
		slog.Warn("topic extraction skipped: no generation provider configured")
		return
	}
	labeler := topics.New(generator, topics.WithRetry(retry))
	extracted, err := labeler.LabelDocument(ctx, doc)
	if err != nil {
		slog.Warn("topic extraction failed", "err", err)
		return
	}
	fmt.Println("Key topics:")
	for _, t := range extracted {
		fmt.Printf("  - %s: %s\n", t.Name, t.Description)
	}
}

// answerOnce handles -query mode: one question, JSON answer on stdout.
func answerOnce(ctx context.Context, engine *retrieval.Engine, composer *answer.Composer, query string) int {
	ans, err := ask(ctx, engine, composer, query)
	if err != nil {
		slog.Error("query failed", "err", err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ans); err != nil {
		slog.Error("encode answer", "err", err)
		return 1
	}
	return 0
}

// interact runs the interactive prompt loop until EOF, ":quit", or a signal.
func interact(ctx context.Context, engine *retrieval.Engine, composer *answer.Composer) int {
	session := answer.NewSession()
	fmt.Println("Ask about the call (:history, :quit):")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ":quit" || line == ":q":
			return 0
		case line == ":history":
			for i, turn := range session.History() {
				fmt.Printf("%2d. [%s] %s\n", i+1, turn.Answer.Tier, turn.Answer.Query)
			}
			continue
		}

		ans, err := ask(ctx, engine, composer, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		session.Record(ans)
		printAnswer(ans)
	}
	if err := scanner.Err(); err != nil {
		slog.Error("read input", "err", err)
		return 1
	}
	return 0
}

// ask retrieves context for query and composes the answer. Without a
// generation provider the best excerpt is returned as a degraded answer.
func ask(ctx context.Context, engine *retrieval.Engine, composer *answer.Composer, query string) (*answer.Answer, error) {
	retrieved, err := engine.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	if composer != nil {
		return composer.Compose(ctx, query, retrieved)
	}

	ans := &answer.Answer{
		Query:    query,
		Tier:     retrieved.Tier,
		TopScore: retrieved.TopScore,
		Degraded: true,
	}
	if retrieved.Tier == retrieval.TierOutOfScope {
		ans.Text = answer.NoAnswerText
		ans.OutOfScope = true
		ans.Degraded = false
	} else if len(retrieved.Results) > 0 {
		top := retrieved.Results[0]
		ans.Text = strings.TrimSpace(top.Meta.Text)
		ans.Citations = []answer.Citation{{
			ChunkID: top.ChunkID,
			Speaker: top.Meta.Speaker,
			Role:    top.Meta.Role,
			Section: top.Meta.Section,
			Score:   top.Score,
		}}
	}
	return ans, nil
}

func printAnswer(ans *answer.Answer) {
	fmt.Println()
	fmt.Println(ans.Text)
	fmt.Printf("\n[confidence: %s", ans.Tier)
	if ans.Degraded {
		fmt.Print(", degraded")
	}
	fmt.Println("]")
	for _, c := range ans.Citations {
		fmt.Printf("  cites %s (%s, %s section, score %.2f)\n", c.Speaker, c.Role, c.Section, c.Score)
	}
	fmt.Println()
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
