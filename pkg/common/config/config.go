package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers      []string
	KafkaGroupID      string
	KafkaOutcomeTopic string
	KafkaModelTopic   string

	// Baseline dataset
	DataDir string

	// Model lifecycle
	ModelDir            string
	TrainingProfilePath string
	RetrainThreshold    int

	// Online feature store
	FeatureOnlinePrefix   string
	FeatureCacheTTL       time.Duration
	NeutralAttendanceRate float64
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "healthsphere"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "healthsphere123"),
		PostgresDB:       getEnv("POSTGRES_DB", "healthsphere"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:      getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "noshow-platform"),
		KafkaOutcomeTopic: getEnv("KAFKA_OUTCOME_TOPIC", "appointments.outcomes"),
		KafkaModelTopic:   getEnv("KAFKA_MODEL_TOPIC", "model.retrained"),

		DataDir: getEnv("DATA_DIR", "data"),

		ModelDir:            getEnv("MODEL_DIR", "models"),
		TrainingProfilePath: getEnv("TRAINING_PROFILE_PATH", ""),
		RetrainThreshold:    getIntEnv("RETRAIN_EVERY_N", 10),

		FeatureOnlinePrefix:   getEnv("FEATURE_ONLINE_PREFIX", "features"),
		FeatureCacheTTL:       getDuration("FEATURE_CACHE_TTL", 0),
		NeutralAttendanceRate: getFloatEnv("NEUTRAL_ATTENDANCE_RATE", 75.0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
