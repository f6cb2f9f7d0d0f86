package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config は環境変数から読み込むアプリケーション全体の設定を保持します
type Config struct {
	// ログ設定
	Log LogConfig

	// メトリクスを公開するアドレス（空なら無効）
	MetricsAddr string

	// 組み込みEmbedder設定
	Bundled BundledConfig

	// Ollama設定（Embedding + 生成）
	Ollama OllamaConfig

	// クラウドAPI設定（Embedding + 生成）
	Cloud CloudConfig

	// Database設定（postgresストア用）
	Database DatabaseConfig

	// SQLite設定（sqliteストア用）
	SQLite SQLiteConfig
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string
	Format string
}

// BundledConfig は組み込みEmbedderの設定
type BundledConfig struct {
	Dimension int
	Backend   string // "auto", "default" or "cpu"
}

// OllamaConfig はローカルのOllamaサーバー設定
type OllamaConfig struct {
	Host            string
	EmbeddingModel  string
	GenerationModel string
}

// CloudConfig はOpenAI互換クラウドAPIの設定
type CloudConfig struct {
	Provider           string // "gemini" or "openai"
	APIKey             string // Provider に対応する環境変数から読み込む
	BaseURL            string // 空ならプロバイダの既定
	EmbeddingModel     string // 空ならプロバイダの既定
	GenerationModel    string // 空ならプロバイダの既定
	EmbeddingDimension int    // 0 ならモデル本来の次元数
	Timeout            time.Duration
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// SQLiteConfig はSQLiteストアの設定
type SQLiteConfig struct {
	Path string
}

// APIKeyEnv はクラウドプロバイダのAPIキーを読む環境変数名を返します
func APIKeyEnv(provider string) string {
	if provider == "openai" {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	provider := getEnv("CLOUD_PROVIDER", "gemini")

	cfg := &Config{
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		MetricsAddr: getEnv("METRICS_ADDR", ""),
		Bundled: BundledConfig{
			Dimension: getEnvAsInt("BUNDLED_EMBEDDING_DIMENSION", 384),
			Backend:   getEnv("BUNDLED_EMBEDDING_BACKEND", "auto"),
		},
		Ollama: OllamaConfig{
			Host:            getEnv("OLLAMA_HOST", "http://localhost:11434"),
			EmbeddingModel:  getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			GenerationModel: getEnv("OLLAMA_GENERATION_MODEL", "deepseek-r1:8b"),
		},
		Cloud: CloudConfig{
			Provider:           provider,
			APIKey:             getEnv(APIKeyEnv(provider), ""),
			BaseURL:            getEnv("CLOUD_BASE_URL", ""),
			EmbeddingModel:     getEnv("CLOUD_EMBEDDING_MODEL", ""),
			GenerationModel:    getEnv("CLOUD_GENERATION_MODEL", ""),
			EmbeddingDimension: getEnvAsInt("CLOUD_EMBEDDING_DIMENSION", 0),
			Timeout:            time.Duration(getEnvAsInt("CLOUD_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "minirag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "minirag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 4),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "minirag.db"),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
