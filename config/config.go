// config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 服务器配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

// ServerConfig 服务器基本配置
type ServerConfig struct {
	GamePort      int           `mapstructure:"game_port"`
	WSPort        int           `mapstructure:"ws_port"`
	StatusPort    int           `mapstructure:"status_port"`
	Debug         bool          `mapstructure:"debug"`
	LogLevel      string        `mapstructure:"log_level"`
	MaxRoomCount  int           `mapstructure:"max_room_count"`
	MaxPlayers    int           `mapstructure:"max_players"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	IdleTickLimit int           `mapstructure:"idle_tick_limit"`
	LoginTimeout  time.Duration `mapstructure:"login_timeout"`
	LoginQueue    int           `mapstructure:"login_queue"`
	SendQueue     int           `mapstructure:"send_queue"`
}

// StorageConfig 玩家数据文件配置
type StorageConfig struct {
	PlayerFile   string        `mapstructure:"player_file"`
	BackupFile   string        `mapstructure:"backup_file"`
	SaveInterval time.Duration `mapstructure:"save_interval"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BackupConfig 异地备份配置
type BackupConfig struct {
	S3 S3Config `mapstructure:"s3"`
}

// S3Config S3兼容存储配置
type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Prefix          string `mapstructure:"prefix"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig Config
)

// setDefaults 设置默认值，与原版服务器的常量保持一致
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.game_port", 5555)
	v.SetDefault("server.ws_port", 5556)
	v.SetDefault("server.status_port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.log_level", "INFO")
	v.SetDefault("server.max_players", 64)
	v.SetDefault("server.max_room_count", 32)
	v.SetDefault("server.tick_interval", 250*time.Millisecond)
	v.SetDefault("server.idle_tick_limit", 10000)
	v.SetDefault("server.login_timeout", 5*time.Second)
	v.SetDefault("server.login_queue", 16)
	v.SetDefault("server.send_queue", 64)

	v.SetDefault("storage.player_file", "data/players.dat")
	v.SetDefault("storage.backup_file", "data/players.dat.bak")
	v.SetDefault("storage.save_interval", 30*time.Second)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("backup.s3.enabled", false)
	v.SetDefault("backup.s3.region", "auto")
	v.SetDefault("backup.s3.prefix", "tictactwo/")
}

// Load 从文件加载配置；文件不存在时只使用默认值和环境变量
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TICTACTWO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("无法读取配置文件: %w", err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("无法解析配置文件: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadConfig 从文件加载配置到 GlobalConfig
func LoadConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	GlobalConfig = cfg
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	for name, port := range map[string]int{
		"server.game_port":   c.Server.GamePort,
		"server.ws_port":     c.Server.WSPort,
		"server.status_port": c.Server.StatusPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("配置项 %s 无效: %d", name, port)
		}
	}

	if c.Server.MaxPlayers < 2 {
		return fmt.Errorf("配置项 server.max_players 至少为2: %d", c.Server.MaxPlayers)
	}
	if c.Server.MaxRoomCount < 1 {
		return fmt.Errorf("配置项 server.max_room_count 至少为1: %d", c.Server.MaxRoomCount)
	}
	if c.Server.TickInterval <= 0 {
		return fmt.Errorf("配置项 server.tick_interval 必须大于0")
	}
	if c.Server.IdleTickLimit <= 0 {
		return fmt.Errorf("配置项 server.idle_tick_limit 必须大于0")
	}
	if c.Storage.PlayerFile == "" {
		return fmt.Errorf("配置项 storage.player_file 不能为空")
	}

	return nil
}

// GetDSN 获取PostgreSQL连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetRedisAddr 获取Redis连接地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
