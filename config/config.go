package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env        string           `mapstructure:"env"` // development, production
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Redis      RedisConfig      `mapstructure:"redis"`
	GameServer GameServerConfig `mapstructure:"game_server"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host             string   `mapstructure:"host"`
	Port             int      `mapstructure:"port"`
	ShutdownTimeout  int      `mapstructure:"shutdown_timeout"` // 优雅关闭等待时间(秒)
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
	RateLimit        float64  `mapstructure:"rate_limit"` // 订单接口每秒请求数, 0 不限流
	RateBurst        int      `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 连接最大生命周期(分钟)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// GatewayConfig 支付网关密钥
// 两个密钥缺一不可, 缺失时回调直接报配置错误, 不会放行未校验的报文
type GatewayConfig struct {
	DecodeKey   string   `mapstructure:"decode_key"`   // nt_data / md5Sign 解码密钥
	ChecksumKey string   `mapstructure:"checksum_key"` // md5 校验密钥
	IPWhitelist []string `mapstructure:"ip_whitelist"` // 回调来源IP/CIDR, 为空不限制
}

// RedisConfig 回调分布式锁
type RedisConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Addr              string `mapstructure:"addr"`
	Password          string `mapstructure:"password"`
	DB                int    `mapstructure:"db"`
	LockExpirySeconds int    `mapstructure:"lock_expiry_seconds"`
}

// GameServerConfig 发货用游戏服接口
type GameServerConfig struct {
	BaseURL        string `mapstructure:"base_url"` // 为空时只记录日志不实际调用
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`        // debug, info, warn, error
	Format     string `mapstructure:"format"`       // json, console
	File       string `mapstructure:"file"`         // 日志文件, 为空只输出stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单文件大小
	MaxBackups int    `mapstructure:"max_backups"`  // 保留文件数
	MaxAgeDays int    `mapstructure:"max_age_days"` // 保留天数
	DBLogLevel string `mapstructure:"db_log_level"` // 数据库日志级别
}

// getExeDir 获取可执行文件所在目录
func getExeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// Load 读取配置, 配置文件不存在时只使用默认值和环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(getExeDir())
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/gamepay")

	// GAMEPAY_GATEWAY_DECODE_KEY -> gateway.decode_key
	v.SetEnvPrefix("gamepay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return c, nil
}

// IsDevelopment 是否开发环境 (模拟支付开关)
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvProduction)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 7088)
	v.SetDefault("server.shutdown_timeout", 10)
	v.SetDefault("server.cors_allow_origins", []string{})
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 30)

	// Database
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "gamepay")
	v.SetDefault("database.password", "gamepay123")
	v.SetDefault("database.dbname", "gamepay")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 60)

	// JWT
	v.SetDefault("jwt.secret", "change-this-secret-key-in-production")

	// Gateway 密钥没有默认值
	v.SetDefault("gateway.decode_key", "")
	v.SetDefault("gateway.checksum_key", "")
	v.SetDefault("gateway.ip_whitelist", []string{})

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_expiry_seconds", 10)

	// Game server
	v.SetDefault("game_server.base_url", "")
	v.SetDefault("game_server.token", "")
	v.SetDefault("game_server.timeout_seconds", 5)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.db_log_level", "warn")
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
