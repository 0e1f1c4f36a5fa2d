package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/studyquiz/chat-service/pkg/database"
	"github.com/studyquiz/chat-service/pkg/log"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Redis     RedisConfig
	Database  database.Config
	Broker    BrokerConfig
	Cache     CacheConfig
	Archive   ArchiveConfig
	Auth      AuthConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// BrokerConfig names the pub/sub channel every gateway instance
// subscribes to. All instances must agree on it.
type BrokerConfig struct {
	Channel string
}

// CacheConfig controls the ephemeral message store. Prefix is the key
// prefix shared by the ingestion path and the archival sweep; HistoryTTL
// bounds the by-date query cache.
type CacheConfig struct {
	Prefix     string
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

type ArchiveConfig struct {
	Cron     string
	Timezone string
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "chat")
	v.SetDefault("database.password", "")
	v.SetDefault("database.db_name", "studyquiz")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.file_path", "chat.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("broker.channel", "chatroom")
	v.SetDefault("cache.prefix", "chat:room:")
	v.SetDefault("cache.history_ttl", "10m")
	v.SetDefault("archive.cron", "0 0 * * *")
	v.SetDefault("archive.timezone", "UTC")
	v.SetDefault("auth.issuer", "studyquiz")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "chat-service")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.db_name", "DB_NAME")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("archive.cron", "ARCHIVE_CRON")
	v.BindEnv("archive.timezone", "ARCHIVE_TIMEZONE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, rely on defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Cache.HistoryTTL = parseDuration(v, "cache.history_ttl", 10*time.Minute)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}
