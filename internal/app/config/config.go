package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	WSServer  WSServerConfig  `yaml:"ws_server"`
	MongoDB   MongoDBConfig   `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Logger    LoggerConfig    `yaml:"logger"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Auction   AuctionConfig   `yaml:"auction"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
}

type WSServerConfig struct {
	Port            string        `yaml:"port" env:"WS_PORT_AUCTION_SERVICE" env-default:"8085"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"60s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	TimeoutGraceful time.Duration `yaml:"timeout_graceful_shutdown" env-default:"15s"`
}

type MongoDBConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	User     string `yaml:"user" env:"MONGO_USER"`
	Password string `yaml:"password" env:"MONGO_PASSWORD"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"auction_service_db"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type NATSConfig struct {
	URL string `yaml:"url" env:"NATS_URL" env-default:"nats://localhost:4222"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT" env-default:"2006-01-02T15:04:05.000Z07:00"`
}

type SchedulerConfig struct {
	// TickInterval must stay at or below one minute so stored statuses lag
	// their auction windows by at most one tick.
	TickInterval  time.Duration `yaml:"tick_interval" env:"SCHEDULER_TICK_INTERVAL" env-default:"15s"`
	ConnectionTTL time.Duration `yaml:"connection_ttl" env:"CONNECTION_IDLE_TTL" env-default:"5m"`
}

type AuctionConfig struct {
	MinBidIncrement float64 `yaml:"min_bid_increment" env:"MIN_BID_INCREMENT" env-default:"5"`
	MaxBidAttempts  int     `yaml:"max_bid_attempts" env:"MAX_BID_ATTEMPTS" env-default:"3"`
}

type BroadcastConfig struct {
	QueueSize int `yaml:"queue_size" env:"BROADCAST_QUEUE_SIZE" env-default:"256"`
	Workers   int `yaml:"workers" env:"BROADCAST_WORKERS" env-default:"8"`
}

func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	err := cleanenv.ReadConfig(path, &cfg)
	if err != nil {
		if _, ok := err.(*os.PathError); ok {
			log.Printf("Warning: Config file not found at %s, attempting to load from environment variables only.", path)
			if errEnv := cleanenv.ReadEnv(&cfg); errEnv != nil {
				return nil, errEnv
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH_AUCTION_SERVICE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	return cfg
}
