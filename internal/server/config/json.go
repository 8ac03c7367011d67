package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/smartids/internal/flagx"
	"github.com/dmitrijs2005/smartids/internal/timex"
)

// JsonConfig is the on-disk JSON shape of the configuration. Only fields
// present in the file override the current values.
type JsonConfig struct {
	EndpointAddrHTTP         *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC         *string         `json:"endpoint_addr_grpc"`
	DatabaseDriver           *string         `json:"database_driver"`
	DatabaseDSN              *string         `json:"database_dsn"`
	SecretKey                *string         `json:"secret_key"`
	MasterKeyHex             *string         `json:"master_key"`
	StorageBackend           *string         `json:"storage_backend"`
	UploadDir                *string         `json:"upload_dir"`
	MaxUploadSize            *int64          `json:"max_upload_size"`
	DefaultShareTTL          *timex.Duration `json:"default_share_ttl"`
	DefaultShareMaxDownloads *int            `json:"default_share_max_downloads"`
	PublicBaseURL            *string         `json:"public_base_url"`
	AllowedOrigins           []string        `json:"allowed_origins"`
	LogLevel                 *string         `json:"log_level"`
	S3AccessKey              *string         `json:"s3_access_key"`
	S3SecretKey              *string         `json:"s3_secret_key"`
	S3Bucket                 *string         `json:"s3_bucket"`
	S3Region                 *string         `json:"s3_region"`
	S3BaseEndpoint           *string         `json:"s3_base_endpoint"`
}

// parseJson loads the JSON file named by -c/-config and copies every field
// present in it into config. Without the flag nothing is loaded. An
// unreadable file or invalid JSON panics: the server cannot start with a
// config it was explicitly told to use.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	copyString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	copyString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	copyString(&config.DatabaseDriver, c.DatabaseDriver)
	copyString(&config.DatabaseDSN, c.DatabaseDSN)
	copyString(&config.SecretKey, c.SecretKey)
	copyString(&config.MasterKeyHex, c.MasterKeyHex)
	copyString(&config.StorageBackend, c.StorageBackend)
	copyString(&config.UploadDir, c.UploadDir)
	copyString(&config.PublicBaseURL, c.PublicBaseURL)
	copyString(&config.LogLevel, c.LogLevel)
	copyString(&config.S3AccessKey, c.S3AccessKey)
	copyString(&config.S3SecretKey, c.S3SecretKey)
	copyString(&config.S3Bucket, c.S3Bucket)
	copyString(&config.S3Region, c.S3Region)
	copyString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.MaxUploadSize != nil {
		config.MaxUploadSize = *c.MaxUploadSize
	}
	if c.DefaultShareTTL != nil {
		config.DefaultShareTTL = c.DefaultShareTTL.Duration
	}
	if c.DefaultShareMaxDownloads != nil {
		config.DefaultShareMaxDownloads = *c.DefaultShareMaxDownloads
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
}

func copyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
