package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	StorageDriver string // postgres or memory

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel  string
	LogFormat string

	SolutionReviewFlow     string // staged or direct
	AllowSelfUpvote        bool
	AdminCanDeleteProblems bool

	MetadataCacheTTL    time.Duration
	UpvoteRatePerSecond float64
	UpvoteBurst         int
	CORSAllowedOrigins  []string

	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	SeedMetadata           bool
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:                getEnv("API_PORT", "8080"),
		JWTKey:                 []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:                 time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		StorageDriver:          strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		DBHost:                 getEnv("DB_HOST", "localhost"),
		DBPort:                 getEnv("DB_PORT", "5432"),
		DBUser:                 getEnv("DB_USER", "user"),
		DBPassword:             getEnv("DB_PASSWORD", "password"),
		DBName:                 getEnv("DB_NAME", "designhub_db"),
		DBSslMode:              getEnv("DB_SSLMODE", "disable"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvAsInt("REDIS_DB", 0),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "console"),
		SolutionReviewFlow:     getEnv("SOLUTION_REVIEW_FLOW", "staged"),
		AllowSelfUpvote:        getEnvAsBool("ALLOW_SELF_UPVOTE", true),
		AdminCanDeleteProblems: getEnvAsBool("ADMIN_CAN_DELETE_PROBLEMS", false),
		MetadataCacheTTL:       time.Duration(getEnvAsInt("METADATA_CACHE_TTL_SECONDS", 300)) * time.Second,
		UpvoteRatePerSecond:    getEnvAsFloat("UPVOTE_RATE_PER_SECOND", 5),
		UpvoteBurst:            getEnvAsInt("UPVOTE_BURST", 10),
		CORSAllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		SeedMetadata:           getEnvAsBool("SEED_METADATA", true),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
