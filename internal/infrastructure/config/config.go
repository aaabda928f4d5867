package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// 环境变量名定义
const (
	// EnvHTTPPort HTTP 端口
	EnvHTTPPort = "RAGPRO_HTTP_PORT"
	// EnvConfigFile 可选的 YAML 配置文件路径
	EnvConfigFile = "RAGPRO_CONFIG"
	// EnvDBPath 数据库文件路径
	EnvDBPath = "RAGPRO_DB_PATH"
	// EnvWatchDir 文档监听目录（空表示不启用）
	EnvWatchDir = "RAGPRO_WATCH_DIR"
	// EnvLLMBaseURL LLM API 基础地址
	EnvLLMBaseURL = "LLM_BASE_URL"
	// EnvLLMAPIKey LLM API 密钥
	EnvLLMAPIKey = "LLM_API_KEY"
	// EnvLLMModel LLM 模型名
	EnvLLMModel = "LLM_MODEL"
)

// Config 应用配置
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	WebSocket    WebSocketConfig    `yaml:"websocket"`
	LLM          LLMConfig          `yaml:"llm"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Watcher      WatcherConfig      `yaml:"watcher"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTPPort 固定端口，同时用于单例锁
	HTTPPort string `yaml:"http_port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path sqlite 文件路径，空表示使用数据目录下的 ragpro.db
	Path string `yaml:"path"`
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size"`
	WriteBufferSize int `yaml:"write_buffer_size"`
}

// LLMConfig 文本生成能力配置
type LLMConfig struct {
	// BaseURL OpenAI 兼容 API 地址
	BaseURL string `yaml:"base_url"`
	// APIKey API 密钥（空则客户端进入离线桩模式）
	APIKey string `yaml:"api_key"`
	// Model 模型名
	Model string `yaml:"model"`
	// TimeoutSeconds 单次调用超时（秒）
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	// MaxIterations 默认迭代上限（调用方可覆盖）
	MaxIterations int `yaml:"max_iterations"`
	// SearchK 每轮检索的候选数量
	SearchK int `yaml:"search_k"`
	// SnippetLen 草稿上下文中每个片段的最大字符数
	SnippetLen int `yaml:"snippet_len"`
}

// WatcherConfig 文档目录监听配置
type WatcherConfig struct {
	// DocsDir 被监听的目录，新增/修改的 .txt/.md 文件自动摄入；空表示不启用
	DocsDir string `yaml:"docs_dir"`
}

// NewConfig 创建配置
// 优先级：环境变量 > YAML 配置文件 > 默认值
func NewConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			HTTPPort: ":19800",
		},
		Database: DatabaseConfig{
			Path: "",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
		},
		Orchestrator: OrchestratorConfig{
			MaxIterations: 5,
			SearchK:       5,
			SnippetLen:    1200,
		},
		Watcher: WatcherConfig{
			DocsDir: "",
		},
	}

	// YAML 配置文件覆盖默认值
	if path := os.Getenv(EnvConfigFile); path != "" {
		_ = loadYAML(path, cfg)
	}

	// 环境变量优先级最高
	if v := os.Getenv(EnvHTTPPort); v != "" {
		cfg.Server.HTTPPort = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv(EnvWatchDir); v != "" {
		cfg.Watcher.DocsDir = v
	}
	if v := os.Getenv(EnvLLMBaseURL); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv(EnvLLMAPIKey); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv(EnvLLMModel); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLM.TimeoutSeconds = n
		}
	}

	return cfg
}

// loadYAML 读取 YAML 配置文件并覆盖到 cfg
func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// DBPath 数据库文件最终路径
func (c *Config) DBPath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(GetDataDir(), "ragpro.db")
}

// NewLLMConfig 创建 LLM 配置
func NewLLMConfig(cfg *Config) *LLMConfig {
	return &cfg.LLM
}

// NewOrchestratorConfig 创建编排器配置
func NewOrchestratorConfig(cfg *Config) *OrchestratorConfig {
	return &cfg.Orchestrator
}
