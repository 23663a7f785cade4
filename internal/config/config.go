package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Judge    JudgeConfig
	Logging  LoggingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JudgeConfig struct {
	// BaseDir is where per-submission sandbox directories are created.
	BaseDir string
	// Workers bounds the number of concurrently running judge pipelines.
	Workers int
	// QueueSize bounds the dispatcher's FIFO backlog.
	QueueSize int
	// CompileTimeoutSeconds caps compilation independently of any problem's
	// run time limit.
	CompileTimeoutSeconds int
	// MaxRetries bounds automatic retries of infrastructure failures.
	MaxRetries int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "oj"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "oj"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Judge: JudgeConfig{
			BaseDir:               getEnv("JUDGE_BASE_DIR", "/tmp/oj-judge"),
			Workers:               getEnvAsInt("JUDGE_WORKERS", 4),
			QueueSize:             getEnvAsInt("JUDGE_QUEUE_SIZE", 1024),
			CompileTimeoutSeconds: getEnvAsInt("JUDGE_COMPILE_TIMEOUT", 10),
			MaxRetries:            getEnvAsInt("JUDGE_MAX_RETRIES", 2),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
