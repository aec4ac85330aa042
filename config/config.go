package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all app configuration
type Config struct {
	Env      string
	HTTPPort string

	// Dispatch pipeline
	MinAlertGap        time.Duration
	QueueCapacity      int
	MaxAttempts        int
	RetryBase          time.Duration
	RetryFactor        int
	SuppressVisual     bool // hide visual alerts during the sleep window too
	EventBufferSize    int
	StatusInterval     time.Duration

	// Sleep window
	SleepEnabled bool
	SleepStart   string // "HH:MM"
	SleepEnd     string
	Timezone     string

	// Tiers
	TierMinimums []int

	// Actuator
	ActuatorAddr         string
	ActuatorDialTimeout  time.Duration
	ActuatorStartTimeout time.Duration
	ActuatorRunTimeout   time.Duration
	ActuatorPingInterval time.Duration
	ActuatorPingTimeout  time.Duration
	ActuatorMaxMissed    int
	ReconnectBase        time.Duration
	ReconnectMax         time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ClickHouse
	ClickhouseAddr     string
	ClickhouseUsername string
	ClickhousePassword string
	ClickhouseTimeout  int

	// Kafka
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaConsumerGroup string
	KafkaBatchSize     int
	KafkaBatchTimeout  int // milliseconds

	// App settings
	DemoMode bool
	Debug    bool
}

// LoadConfig loads configuration from environment variables, with optional .env file
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg := &Config{
		Env:      getEnv("ENV", "local"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		MinAlertGap:     getEnvAsDuration("MIN_ALERT_GAP", 8*time.Second),
		QueueCapacity:   getEnvAsInt("QUEUE_CAPACITY", 100),
		MaxAttempts:     getEnvAsInt("ACTUATION_MAX_ATTEMPTS", 3),
		RetryBase:       getEnvAsDuration("ACTUATION_RETRY_BASE", time.Second),
		RetryFactor:     getEnvAsInt("ACTUATION_RETRY_FACTOR", 3),
		SuppressVisual:  getEnvAsBool("SUPPRESS_VISUAL_DURING_SLEEP", false),
		EventBufferSize: getEnvAsInt("EVENT_BUFFER_SIZE", 1000),
		StatusInterval:  getEnvAsDuration("STATUS_INTERVAL", 10*time.Second),

		SleepEnabled: getEnvAsBool("SLEEP_MODE_ENABLED", true),
		SleepStart:   getEnv("SLEEP_MODE_START", "23:00"),
		SleepEnd:     getEnv("SLEEP_MODE_END", "06:00"),
		Timezone:     getEnv("TIMEZONE", "UTC"),

		TierMinimums: getEnvAsIntSlice("TIER_MINIMUMS", []int{1, 10, 25, 50, 100}),

		ActuatorAddr:         getEnv("ACTUATOR_ADDR", "localhost:9600"),
		ActuatorDialTimeout:  getEnvAsDuration("ACTUATOR_DIAL_TIMEOUT", 5*time.Second),
		ActuatorStartTimeout: getEnvAsDuration("ACTUATOR_START_TIMEOUT", 2*time.Second),
		ActuatorRunTimeout:   getEnvAsDuration("ACTUATOR_RUN_TIMEOUT", 15*time.Second),
		ActuatorPingInterval: getEnvAsDuration("ACTUATOR_PING_INTERVAL", 10*time.Second),
		ActuatorPingTimeout:  getEnvAsDuration("ACTUATOR_PING_TIMEOUT", 2*time.Second),
		ActuatorMaxMissed:    getEnvAsInt("ACTUATOR_MAX_MISSED_PINGS", 3),
		ReconnectBase:        getEnvAsDuration("ACTUATOR_RECONNECT_BASE", time.Second),
		ReconnectMax:         getEnvAsDuration("ACTUATOR_RECONNECT_MAX", 30*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		ClickhouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickhouseUsername: getEnv("CLICKHOUSE_USERNAME", ""),
		ClickhousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		ClickhouseTimeout:  getEnvAsInt("CLICKHOUSE_TIMEOUT", 10),

		KafkaBrokers:       getEnvAsSlice("KAFKA_BROKERS", nil, ","),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "donations"),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "catfeeder-group"),
		KafkaBatchSize:     getEnvAsInt("KAFKA_BATCH_SIZE", 100),
		KafkaBatchTimeout:  getEnvAsInt("KAFKA_BATCH_TIMEOUT", 3000),

		DemoMode: getEnvAsBool("DEMO_MODE", false),
		Debug:    getEnvAsBool("DEBUG", false),
	}

	return cfg
}

// Helper functions for parsing environment variables
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := getEnv(key, "")
	if val, err := time.ParseDuration(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	return strings.Split(valStr, sep)
}

func getEnvAsIntSlice(key string, defaultVal []int) []int {
	parts := getEnvAsSlice(key, nil, ",")
	if len(parts) == 0 {
		return defaultVal
	}
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultVal
		}
		values = append(values, value)
	}
	return values
}
