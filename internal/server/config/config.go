// Package config handles configuration for the SmartIDS server: defaults,
// an optional .env file and environment variables, an optional JSON
// overlay, and finally command-line flags.
package config

import "time"

// Config holds runtime settings for the server.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses for the HTTP API
//     and the gRPC health endpoint.
//   - DatabaseDriver: "pgx" (PostgreSQL) or "sqlite" (embedded).
//   - DatabaseDSN: DSN for the selected driver.
//   - SecretKey: HMAC secret used to verify caller JWTs (HS256).
//   - MasterKeyHex: 64 hex characters; wraps per-file keys. Only read from
//     the environment or the JSON file, never from flags.
//   - StorageBackend: "disk" or "s3"; UploadDir is used by "disk".
//   - MaxUploadSize: upper bound of a single upload, in bytes; zero or
//     negative disables the limit.
//   - DefaultShareTTL / DefaultShareMaxDownloads: share defaults when the
//     caller does not specify them.
//   - PublicBaseURL: prefix for generated share URLs; derived from the
//     request when empty.
//   - AllowedOrigins: CORS origins of the web frontend.
//   - S3*: S3-compatible object storage settings.
type Config struct {
	EndpointAddrHTTP         string
	EndpointAddrGRPC         string
	DatabaseDriver           string
	DatabaseDSN              string
	SecretKey                string
	MasterKeyHex             string
	StorageBackend           string
	UploadDir                string
	MaxUploadSize            int64
	DefaultShareTTL          time.Duration
	DefaultShareMaxDownloads int
	PublicBaseURL            string
	AllowedOrigins           []string
	LogLevel                 string
	S3AccessKey              string
	S3SecretKey              string
	S3Bucket                 string
	S3Region                 string
	S3BaseEndpoint           string
}

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"

	StorageDisk = "disk"
	StorageS3   = "s3"
)

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key default is insecure and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":5000"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "file:smartids.db?_pragma=busy_timeout(5000)"
	c.SecretKey = "supersecretkey_dev_fallback"
	c.MasterKeyHex = ""
	c.StorageBackend = StorageDisk
	c.UploadDir = "uploads"
	c.MaxUploadSize = 50 << 20
	c.DefaultShareTTL = 60 * time.Minute
	c.DefaultShareMaxDownloads = 1
	c.PublicBaseURL = ""
	c.AllowedOrigins = []string{"http://localhost:5173"}
	c.LogLevel = "info"
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Bucket = "smartids"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then the environment
// (after loading an optional .env file), then an optional JSON file, and
// finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
