package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Timesheet TimesheetConfig `mapstructure:"timesheet"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port           int        `mapstructure:"port"`
	BaseURL        string     `mapstructure:"base_url"`
	BodyLimitBytes int64      `mapstructure:"body_limit_bytes"`
	CORS           CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（限流计数 + Token 黑名单，未启用时降级为单机模式）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置（Token 由外部身份服务签发，本服务只校验）
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TimesheetConfig 工时核算策略
type TimesheetConfig struct {
	GraceMinutes              int `mapstructure:"grace_minutes"`                 // 上下班吸附宽限
	LateClockOutReviewMinutes int `mapstructure:"late_clock_out_review_minutes"` // 超过排班结束多久附加复核备注
	CorrectionReasonMinLength int `mapstructure:"correction_reason_min_length"`
	ExportMaxRangeDays        int `mapstructure:"export_max_range_days"`
}

// GraceWindow 宽限时长
func (c TimesheetConfig) GraceWindow() time.Duration {
	return time.Duration(c.GraceMinutes) * time.Minute
}

// LateClockOutThreshold 晚退复核阈值
func (c TimesheetConfig) LateClockOutThreshold() time.Duration {
	return time.Duration(c.LateClockOutReviewMinutes) * time.Minute
}

// RateLimitConfig 入口限流配置
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 单实例令牌桶速率
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`     // 本地限流器闲置淘汰时间
	Window            time.Duration `mapstructure:"window"`       // Redis 固定窗口
	WindowLimit       int           `mapstructure:"window_limit"` // 窗口内全局上限
}

// DefaultTimesheetConfig 默认工时策略
func DefaultTimesheetConfig() TimesheetConfig {
	return TimesheetConfig{
		GraceMinutes:              5,
		LateClockOutReviewMinutes: 15,
		CorrectionReasonMinLength: 10,
		ExportMaxRangeDays:        93,
	}
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值；存在 .env 时先载入环境变量
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "shiftclock")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "shiftclock")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	defaults := DefaultTimesheetConfig()
	v.SetDefault("timesheet.grace_minutes", defaults.GraceMinutes)
	v.SetDefault("timesheet.late_clock_out_review_minutes", defaults.LateClockOutReviewMinutes)
	v.SetDefault("timesheet.correction_reason_min_length", defaults.CorrectionReasonMinLength)
	v.SetDefault("timesheet.export_max_range_days", defaults.ExportMaxRangeDays)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.idle_ttl", "10m")
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.window_limit", 300)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SHIFTCLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Timesheet.GraceMinutes < 0 || c.Timesheet.LateClockOutReviewMinutes < 0 {
		return fmt.Errorf("配置校验失败: timesheet 宽限/复核分钟数不能为负")
	}
	if c.Timesheet.CorrectionReasonMinLength <= 0 {
		return fmt.Errorf("配置校验失败: timesheet.correction_reason_min_length 必须为正")
	}
	if c.Timesheet.ExportMaxRangeDays <= 0 {
		return fmt.Errorf("配置校验失败: timesheet.export_max_range_days 必须为正")
	}
	return nil
}
