package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	v2 "docqa/handler/http/v2"
	"docqa/src/core/docqa"
	"docqa/src/fsutil"
	"docqa/src/infrastructure/decoder"
	"docqa/src/infrastructure/integrations/langchain"
	"docqa/src/infrastructure/integrations/ollama"
	"docqa/src/infrastructure/integrations/unstructured"
	"docqa/src/log"
	"docqa/src/storage/docsource"
	"docqa/src/storage/minioctrl"
	"docqa/src/storage/postgres/turnctrl"
	"docqa/src/storage/sessionstore/memory"
	"docqa/src/storage/sessionstore/redisstore"
	"docqa/src/storage/weaviate"
)

// deps is everything a command needs, built from viper.
type deps struct {
	service *docqa.Service
	source  *docsource.Fetcher
	checks  []v2.HealthCheck
	closers []func() error
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Error(err, "Error closing dependency")
		}
	}
}

func loadConfig() (docqa.Config, error) {
	cfg := docqa.DefaultConfig()
	cfg.ChunkSize = viper.GetInt("rag.chunk_size")
	cfg.ChunkOverlap = viper.GetInt("rag.chunk_overlap")
	cfg.TopK = viper.GetInt("rag.top_k")
	if floor := viper.GetFloat64("rag.similarity_floor"); floor >= 0 {
		cfg.Floor = docqa.SimilarityFloor{Enabled: true, Min: floor}
	}
	cfg.MaxSuggestions = viper.GetInt("rag.max_suggestions")
	cfg.SuggestionCharBudget = viper.GetInt("rag.suggestion_char_budget")
	cfg.SeedChunks = viper.GetInt("rag.seed_chunks")
	cfg.HistoryTurns = viper.GetInt("rag.history_turns")
	cfg.AnswerModel = viper.GetString("answer.model")
	cfg.AnswerTemperature = viper.GetFloat64("answer.temperature")
	cfg.SuggestionModel = viper.GetString("suggestion.model")
	cfg.SuggestionTemperature = viper.GetFloat64("suggestion.temperature")
	cfg.Verification = docqa.VerificationMode(viper.GetString("rag.verification"))
	cfg.CallTimeout = viper.GetDuration("llm.timeout")
	cfg.MaxUploadBytes = viper.GetInt64("rag.max_upload_bytes")
	return cfg, cfg.Validate()
}

// buildDeps wires the configured backends. opts are applied to index builds.
func buildDeps(ctx context.Context, opts ...docqa.BuildOption) (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	d := &deps{}

	// Generation and embeddings
	var (
		llm     docqa.TextGenerator
		backend docqa.EmbeddingBackend
	)
	switch provider := viper.GetString("llm.provider"); provider {
	case "ollama":
		oc := ollama.NewClient(viper.GetString("ollama.url"), &http.Client{})
		llm, backend = oc, oc
		d.checks = append(d.checks, v2.HealthCheck{Name: "ollama", Pinger: oc})
	case "openai":
		oc, err := langchain.NewOpenAI(viper.GetString("openai.api_key"), viper.GetString("openai.base_url"), cfg.AnswerModel)
		if err != nil {
			return nil, err
		}
		llm, backend = oc, oc
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", docqa.ErrInvalidConfig, provider)
	}

	emb, err := docqa.NewEmbedding(backend, viper.GetString("embedding.model"), docqa.WithEmbeddingTimeout(cfg.CallTimeout))
	if err != nil {
		return nil, err
	}

	// Decoding
	var pdfDecoder docqa.Decoder
	switch kind := viper.GetString("decoder.kind"); kind {
	case "local":
		pdfDecoder = decoder.PDF{}
	case "unstructured":
		pdfDecoder = unstructured.NewUnstructuredService(viper.GetString("unstructured.url"), &http.Client{Timeout: cfg.CallTimeout})
	default:
		return nil, fmt.Errorf("%w: unknown decoder %q", docqa.ErrInvalidConfig, kind)
	}

	// Vector index
	var builder docqa.IndexBuilder
	switch kind := viper.GetString("index.backend"); kind {
	case docqa.MemoryBackend:
		builder = docqa.NewMemoryIndexBuilder(emb, cfg.Floor, opts...)
	case weaviate.Backend:
		wc, err := weaviate.NewClient(viper.GetString("weaviate.scheme"), viper.GetString("weaviate.host"))
		if err != nil {
			return nil, err
		}
		sdk := weaviate.NewSDK(wc)
		builder = weaviate.NewIndexBuilder(sdk, emb, cfg.Floor, opts...)
		d.checks = append(d.checks, v2.HealthCheck{Name: "weaviate", Pinger: sdk})
	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", docqa.ErrInvalidConfig, kind)
	}

	// Sessions
	var store docqa.SessionStore
	switch kind := viper.GetString("session.store"); kind {
	case "memory":
		ms := memory.NewStore(viper.GetDuration("session.ttl"), viper.GetDuration("session.cleanup_interval"))
		store = ms
		d.checks = append(d.checks, v2.HealthCheck{Name: "sessions", Pinger: ms})
	case "redis":
		rdb := redisstore.NewClient(viper.GetString("redis.url"), viper.GetString("redis.password"), viper.GetInt("redis.db"))
		rs := redisstore.NewStore(rdb, builder, viper.GetDuration("session.ttl"))
		store = rs
		d.checks = append(d.checks, v2.HealthCheck{Name: "sessions", Pinger: rs})
		d.closers = append(d.closers, rdb.Close)
	default:
		return nil, fmt.Errorf("%w: unknown session store %q", docqa.ErrInvalidConfig, kind)
	}

	// Turn audit log
	var orchOpts []docqa.Option
	if viper.GetBool("postgres.enabled") {
		turns, closeDB, err := openTurnLog(ctx)
		if err != nil {
			d.Close()
			return nil, err
		}
		orchOpts = append(orchOpts, docqa.WithTurnRecorder(turns))
		d.checks = append(d.checks, v2.HealthCheck{Name: "postgres", Pinger: turns})
		d.closers = append(d.closers, closeDB)
	}

	orch, err := docqa.NewOrchestrator(cfg, decoder.NewByExtension(pdfDecoder), llm, builder, orchOpts...)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.service = docqa.NewService(orch, store)

	// Document source for the CLI commands
	var objects docsource.ObjectGetter
	if viper.GetBool("minio.enabled") {
		ms, err := minioctrl.NewMinioService(
			viper.GetString("minio.endpoint"),
			viper.GetString("minio.access_key"),
			viper.GetString("minio.secret_key"),
			viper.GetBool("minio.use_ssl"),
		)
		if err != nil {
			d.Close()
			return nil, err
		}
		objects = ms
	}
	d.source = docsource.NewFetcher(fsutil.NewLocalFileStore(), objects, cfg.MaxUploadBytes)

	return d, nil
}

func openTurnLog(ctx context.Context) (*turnctrl.TurnService, func() error, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"))
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}

	turns, err := turnctrl.NewTurnService(db)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	if err := turns.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	return turns, sqlDB.Close, nil
}
