package cmd

import (
	"strings"

	"github.com/spf13/viper"
)

func settingDefaultConfig() {
	// Enable automatic environment variable binding
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Retrieval and answering
	viper.BindEnv("rag.chunk_size", "RAG_CHUNK_SIZE")
	viper.BindEnv("rag.chunk_overlap", "RAG_CHUNK_OVERLAP")
	viper.BindEnv("rag.top_k", "RAG_TOP_K")
	viper.BindEnv("rag.similarity_floor", "RAG_SIMILARITY_FLOOR")
	viper.BindEnv("rag.verification", "RAG_VERIFICATION")
	viper.BindEnv("rag.max_upload_bytes", "RAG_MAX_UPLOAD_BYTES")
	viper.SetDefault("rag.chunk_size", 1000)
	viper.SetDefault("rag.chunk_overlap", 150)
	viper.SetDefault("rag.top_k", 6)
	// Negative disables the floor.
	viper.SetDefault("rag.similarity_floor", -1)
	viper.SetDefault("rag.verification", "strict")
	viper.SetDefault("rag.max_upload_bytes", 32<<20)
	viper.SetDefault("rag.history_turns", 5)

	viper.SetDefault("rag.max_suggestions", 5)
	viper.SetDefault("rag.suggestion_char_budget", 3000)
	viper.SetDefault("rag.seed_chunks", 6)

	// Models
	viper.BindEnv("llm.provider", "LLM_PROVIDER")
	viper.BindEnv("llm.timeout", "LLM_TIMEOUT")
	viper.BindEnv("answer.model", "ANSWER_MODEL")
	viper.BindEnv("suggestion.model", "SUGGESTION_MODEL")
	viper.BindEnv("embedding.model", "EMBEDDING_MODEL")
	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("answer.model", "llama3.1")
	viper.SetDefault("answer.temperature", 0)
	viper.SetDefault("suggestion.model", "llama3.1")
	viper.SetDefault("suggestion.temperature", 0.7)
	viper.SetDefault("embedding.model", "nomic-embed-text")

	viper.BindEnv("ollama.url", "OLLAMA_URL")
	viper.SetDefault("ollama.url", "http://localhost:11434/api")

	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")

	// Document decoding
	viper.BindEnv("decoder.kind", "DECODER_KIND")
	viper.SetDefault("decoder.kind", "local")
	viper.BindEnv("unstructured.url", "UNSTRUCTURED_API_URL")
	viper.SetDefault("unstructured.url", "http://unstructured_api:8000")

	// Vector index
	viper.BindEnv("index.backend", "INDEX_BACKEND")
	viper.SetDefault("index.backend", "memory")
	viper.BindEnv("weaviate.host", "WEAVIATE_HOST")
	viper.BindEnv("weaviate.scheme", "WEAVIATE_SCHEME")
	viper.SetDefault("weaviate.host", "weaviate:8080")
	viper.SetDefault("weaviate.scheme", "http")

	// Sessions
	viper.BindEnv("session.store", "SESSION_STORE")
	viper.BindEnv("session.ttl", "SESSION_TTL")
	viper.SetDefault("session.store", "memory")
	viper.SetDefault("session.ttl", "24h")
	viper.SetDefault("session.cleanup_interval", "10m")

	viper.BindEnv("redis.url", "REDIS_URL")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("redis.db", 0)

	// Map environment variables to Viper keys for PostgreSQL
	viper.BindEnv("postgres.enabled", "POSTGRES_ENABLED")
	viper.BindEnv("postgres.host", "POSTGRES_HOST")
	viper.BindEnv("postgres.port", "POSTGRES_PORT")
	viper.BindEnv("postgres.user", "POSTGRES_USER")
	viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	viper.BindEnv("postgres.db", "POSTGRES_DB")
	viper.SetDefault("postgres.enabled", false)
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", "5432")
	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "postgres")
	viper.SetDefault("postgres.db", "docqa")

	// Map environment variables to Viper keys for MinIO
	viper.BindEnv("minio.enabled", "MINIO_ENABLED")
	viper.BindEnv("minio.endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("minio.access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("minio.secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("minio.use_ssl", "MINIO_USE_SSL")
	viper.SetDefault("minio.enabled", false)
	viper.SetDefault("minio.endpoint", "localhost:9000")
	viper.SetDefault("minio.access_key", "minioadmin")
	viper.SetDefault("minio.secret_key", "minioadmin")
	viper.SetDefault("minio.use_ssl", false)

	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdown_timeout", "5s")

	viper.BindEnv("log.development", "LOG_DEVELOPMENT")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", true)
}
