package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Binance  BinanceConfig
	LLM      LLMConfig
	Agent    AgentConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Brokers        []string
	DecisionsTopic string
	TradesTopic    string
	SnapshotsTopic string
	ConsumerGroup  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// BinanceConfig holds futures exchange credentials
type BinanceConfig struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
}

// LLMConfig holds the OpenAI-compatible completion endpoint settings
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// AgentConfig holds defaults for the background decision loop
type AgentConfig struct {
	DecisionInterval time.Duration
	Symbols          []string
	TakerFeeRate     float64
}

// TradingPair is one entry of the default pair list served by /config
type TradingPair struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultTradingPairs returns the pair list the dashboard offers by default
func DefaultTradingPairs() []TradingPair {
	return []TradingPair{
		{Symbol: "BTC/USDT:USDT", Name: "Bitcoin", Description: "Bitcoin perpetual"},
		{Symbol: "ETH/USDT:USDT", Name: "Ethereum", Description: "Ethereum perpetual"},
		{Symbol: "DOGE/USDT:USDT", Name: "Dogecoin", Description: "Dogecoin perpetual"},
	}
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8081"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "trader"),
			Password: getEnv("DB_PASSWORD", "trader5"),
			DBName:   getEnv("DB_NAME", "trading_dashboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:        parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			DecisionsTopic: getEnv("KAFKA_DECISIONS_TOPIC", "trading.decisions"),
			TradesTopic:    getEnv("KAFKA_TRADES_TOPIC", "trading.trades"),
			SnapshotsTopic: getEnv("KAFKA_SNAPSHOTS_TOPIC", "trading.snapshots"),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "trading-dashboard"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Binance: BinanceConfig{
			APIKey:     getEnv("BINANCE_API_KEY", ""),
			SecretKey:  getEnv("BINANCE_SECRET_KEY", ""),
			UseTestnet: getEnvBool("BINANCE_TESTNET", false),
		},
		LLM: LLMConfig{
			BaseURL: getEnv("LLM_BASE_URL", "https://api.deepseek.com"),
			APIKey:  getEnv("LLM_API_KEY", ""),
			Model:   getEnv("LLM_MODEL", "deepseek-chat"),
			Timeout: getEnvDuration("LLM_TIMEOUT", 120*time.Second),
		},
		Agent: AgentConfig{
			DecisionInterval: getEnvDuration("AGENT_DECISION_INTERVAL", 5*time.Minute),
			Symbols:          parseBrokers(getEnv("AGENT_SYMBOLS", "BTC/USDT:USDT,ETH/USDT:USDT")),
			TakerFeeRate:     getEnvFloat("AGENT_TAKER_FEE_RATE", 0.0005),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare integers are treated as seconds
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// parseBrokers splits a comma-separated list
func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
