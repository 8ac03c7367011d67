package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envFileName is loaded before reading variables. Variables already present
// in the process environment take precedence over the file.
var envFileName = ".env"

// parseEnv overlays Config with environment variables. A missing .env file
// is not an error.
func parseEnv(config *Config) {
	if name := os.Getenv("ENV_FILE"); name != "" {
		_ = godotenv.Load(name)
	} else {
		_ = godotenv.Load(envFileName)
	}

	setString(&config.EndpointAddrHTTP, "HTTP_ADDRESS")
	setString(&config.EndpointAddrGRPC, "GRPC_ADDRESS")
	setString(&config.DatabaseDriver, "DB_DRIVER")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.SecretKey, "JWT_SECRET")
	setString(&config.MasterKeyHex, "MASTER_KEY")
	setString(&config.StorageBackend, "STORAGE_BACKEND")
	setString(&config.UploadDir, "UPLOAD_DIR")
	setString(&config.PublicBaseURL, "PUBLIC_BASE_URL")
	setString(&config.LogLevel, "LOG_LEVEL")
	setString(&config.S3AccessKey, "S3_ACCESS_KEY")
	setString(&config.S3SecretKey, "S3_SECRET_KEY")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")

	if v, ok := os.LookupEnv("MAX_UPLOAD_SIZE"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MaxUploadSize = n
		}
	}
	if v, ok := os.LookupEnv("SHARE_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.DefaultShareTTL = d
		}
	}
	if v, ok := os.LookupEnv("SHARE_MAX_DOWNLOADS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			config.DefaultShareMaxDownloads = n
		}
	}
	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		config.AllowedOrigins = splitList(v)
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
