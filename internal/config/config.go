// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Session       SessionConfig       `yaml:"session" mapstructure:"session"`
	Install       InstallConfig       `yaml:"install" mapstructure:"install"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// StorageConfig 会话快照存储配置
type StorageConfig struct {
	// Driver 存储驱动: sqlite / redis / postgres / memory
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Key 快照键名，与浏览器 localStorage 的键保持一致
	Key string `yaml:"key" mapstructure:"key"`
	// SaveDebounce 写入防抖间隔
	SaveDebounce time.Duration `yaml:"save_debounce" mapstructure:"save_debounce"`
	// SaveTimeout 单次写入超时
	SaveTimeout time.Duration `yaml:"save_timeout" mapstructure:"save_timeout"`

	SQLite   SQLiteConfig   `yaml:"sqlite" mapstructure:"sqlite"`
	Redis    RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// SQLiteConfig 本地 SQLite 配置
type SQLiteConfig struct {
	Path        string        `yaml:"path" mapstructure:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`

	// ChatModels 对外提供的模型选项，key 为选项标识
	ChatModels   []ChatModelOption `yaml:"chat_models" mapstructure:"chat_models"`
	DefaultModel string            `yaml:"default_model" mapstructure:"default_model"`

	// TitleModel / SuggestionModel 为一次性调用使用的模型标识
	TitleModel      string `yaml:"title_model" mapstructure:"title_model"`
	SuggestionModel string `yaml:"suggestion_model" mapstructure:"suggestion_model"`

	Chat       GenerationParams `yaml:"chat" mapstructure:"chat"`
	Suggestion GenerationParams `yaml:"suggestion" mapstructure:"suggestion"`
	Title      GenerationParams `yaml:"title" mapstructure:"title"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Model     string        `yaml:"model" mapstructure:"model"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ChatModelOption 用户可选的模型
type ChatModelOption struct {
	ID    string `yaml:"id" mapstructure:"id"`
	Model string `yaml:"model" mapstructure:"model"`
	Label string `yaml:"label" mapstructure:"label"`
}

// GenerationParams 采样参数；零值表示不下发
type GenerationParams struct {
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
	TopP        float32 `yaml:"top_p" mapstructure:"top_p"`
	TopK        int     `yaml:"top_k" mapstructure:"top_k"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SessionConfig 会话状态机配置
type SessionConfig struct {
	// TitleTimeout 自动标题请求超时
	TitleTimeout time.Duration `yaml:"title_timeout" mapstructure:"title_timeout"`
	// GenerationTimeout 单次流式生成的总超时，0 表示不限制
	GenerationTimeout time.Duration `yaml:"generation_timeout" mapstructure:"generation_timeout"`
	// ShutdownTimeout 关闭时等待生成结束和落盘的时间
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// InstallConfig 安装状态配置
type InstallConfig struct {
	// Installed 以已安装（独立窗口）模式启动，此时不再提供安装提示
	Installed bool `yaml:"installed" mapstructure:"installed"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// ModelIDs 返回全部可选模型标识
func (c LLMConfig) ModelIDs() []string {
	ids := make([]string, 0, len(c.ChatModels))
	for _, m := range c.ChatModels {
		ids = append(ids, m.ID)
	}
	return ids
}

// ResolveModel 将选项标识解析为提供商模型名；未知标识返回 false
func (c LLMConfig) ResolveModel(id string) (ChatModelOption, bool) {
	for _, m := range c.ChatModels {
		if m.ID == id {
			return m, true
		}
	}
	return ChatModelOption{}, false
}
