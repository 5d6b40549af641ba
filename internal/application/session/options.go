package session

import (
	"time"

	"github.com/google/uuid"
)

type options struct {
	now               func() time.Time
	newID             func() string
	saveDebounce      time.Duration
	saveTimeout       time.Duration
	titleTimeout      time.Duration
	generationTimeout time.Duration
	driver            string
}

func defaultOptions() options {
	return options{
		now:          time.Now,
		newID:        newUUID,
		saveDebounce: 500 * time.Millisecond,
		saveTimeout:  5 * time.Second,
		titleTimeout: 30 * time.Second,
		driver:       "unknown",
	}
}

// Option 配置 Store
type Option func(*options)

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator 替换 ID 生成器
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// WithSaveDebounce 设置快照写入的合并间隔
func WithSaveDebounce(d time.Duration) Option {
	return func(o *options) { o.saveDebounce = d }
}

// WithSaveTimeout 设置单次写入超时
func WithSaveTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.saveTimeout = d
		}
	}
}

// WithTitleTimeout 设置自动标题请求超时
func WithTitleTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.titleTimeout = d
		}
	}
}

// WithGenerationTimeout 设置单次流式生成的总超时，0 表示不限制
func WithGenerationTimeout(d time.Duration) Option {
	return func(o *options) { o.generationTimeout = d }
}

// WithDriverName 用于日志中标识存储驱动
func WithDriverName(name string) Option {
	return func(o *options) { o.driver = name }
}

// newUUID 生成按时间排序的 UUIDv7，失败时退回随机 UUID
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
