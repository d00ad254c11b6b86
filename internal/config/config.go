package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// DatabaseConfig 定义数据库连接配置（PostgreSQL）
type DatabaseConfig struct {
	DSN             string        // 连接字符串，留空表示使用内存存储（开发模式）
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Address  string // Redis 服务地址，留空表示不启用缓存
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// GeminiConfig 定义向量服务（Gemini Embedding API）配置
type GeminiConfig struct {
	APIKey         string        // API 密钥，留空表示未配置向量服务（语义检索降级为 none）
	EmbeddingModel string        // 向量模型名称，默认 text-embedding-004
	Timeout        time.Duration // 单次调用超时，默认 30s
	RequestsPerSec float64       // 出站调用速率上限，默认 5
}

// SearchConfig 定义检索与查重的阈值参数
type SearchConfig struct {
	DefaultLimit       int     // 检索默认返回条数，默认 100
	SemanticThreshold  float64 // 语义检索相似度阈值，默认 0.5
	DuplicateThreshold float64 // 查重相似度阈值，默认 0.85
	DuplicateLimit     int     // 查重候选条数上限，默认 5
}

// UsageConfig 定义用量审计日志的保留策略
type UsageConfig struct {
	Retention time.Duration // 审计记录保留时长，默认 24h（滚动窗口只需要 60s）
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig   // HTTP 服务器配置
	Log      LogConfig      // 日志配置
	Database DatabaseConfig // 数据库配置
	Redis    RedisConfig    // Redis 配置
	CORS     CORSConfig     // 跨域配置
	Gemini   GeminiConfig   // 向量服务配置
	Search   SearchConfig   // 检索阈值配置
	Usage    UsageConfig    // 审计日志保留配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: FLOODWATCH_
// 例如: FLOODWATCH_SERVER_PORT, FLOODWATCH_GEMINI_API_KEY
//
// 返回值:
//   - *Config: 加载成功的配置对象
//   - error: 配置验证失败时返回错误
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("floodwatch")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("database.dsn", "") // 默认为空，使用内存存储
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.embedding_model", "text-embedding-004")
	viper.SetDefault("gemini.timeout", "30s")
	viper.SetDefault("gemini.requests_per_sec", 5.0)
	viper.SetDefault("search.default_limit", 100)
	viper.SetDefault("search.semantic_threshold", 0.5)
	viper.SetDefault("search.duplicate_threshold", 0.85)
	viper.SetDefault("search.duplicate_limit", 5)
	viper.SetDefault("usage.retention", "24h")

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	geminiTimeout, err := time.ParseDuration(viper.GetString("gemini.timeout"))
	if err != nil {
		geminiTimeout = 30 * time.Second
	}

	usageRetention, err := time.ParseDuration(viper.GetString("usage.retention"))
	if err != nil {
		usageRetention = 24 * time.Hour
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	semanticThreshold := viper.GetFloat64("search.semantic_threshold")
	if semanticThreshold < -1 || semanticThreshold > 1 {
		return nil, fmt.Errorf("search.semantic_threshold must be within [-1,1], got %v", semanticThreshold)
	}

	duplicateThreshold := viper.GetFloat64("search.duplicate_threshold")
	if duplicateThreshold < -1 || duplicateThreshold > 1 {
		return nil, fmt.Errorf("search.duplicate_threshold must be within [-1,1], got %v", duplicateThreshold)
	}

	defaultLimit := viper.GetInt("search.default_limit")
	if defaultLimit <= 0 {
		defaultLimit = 100
	}

	duplicateLimit := viper.GetInt("search.duplicate_limit")
	if duplicateLimit <= 0 {
		duplicateLimit = 5
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Database: DatabaseConfig{
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Gemini: GeminiConfig{
			APIKey:         viper.GetString("gemini.api_key"),
			EmbeddingModel: viper.GetString("gemini.embedding_model"),
			Timeout:        geminiTimeout,
			RequestsPerSec: viper.GetFloat64("gemini.requests_per_sec"),
		},
		Search: SearchConfig{
			DefaultLimit:       defaultLimit,
			SemanticThreshold:  semanticThreshold,
			DuplicateThreshold: duplicateThreshold,
			DuplicateLimit:     duplicateLimit,
		},
		Usage: UsageConfig{
			Retention: usageRetention,
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
//
// 参数:
//   - value: 逗号分隔的字符串，如 "item1,item2,item3"
//
// 返回值:
//   - []string: 解析后的字符串切片，已去除空白字符
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（用于从 backend/ 子目录运行的情况）
//
// 注意：
//   - 如果文件不存在，静默失败（.env 是可选的）
//   - 环境变量不会被覆盖（已存在的环境变量优先级更高）
func loadEnvFile() {
	// 尝试当前目录的 .env
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	// 尝试父目录的 .env
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
