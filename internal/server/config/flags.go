package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/smartids/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":5000")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-D string   database driver: pgx | sqlite
//	-d string   database DSN
//	-s string   JWT HMAC secret key
//	-S string   storage backend: disk | s3
//	-u string   upload directory for the disk backend
//	-m int      maximum upload size, bytes
//	-t int      default share lifetime, minutes
//	-n int      default share download limit
//	-p string   public base URL for share links
//	-l string   log level
//
// The master key is deliberately not accepted as a flag so it never shows
// up in process listings.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-D", "-d", "-s", "-S", "-u", "-m", "-t", "-n", "-p", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDriver, "D", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")
	fs.StringVar(&config.StorageBackend, "S", config.StorageBackend, "storage backend (disk|s3)")
	fs.StringVar(&config.UploadDir, "u", config.UploadDir, "upload directory")
	fs.Int64Var(&config.MaxUploadSize, "m", config.MaxUploadSize, "max upload size in bytes")

	shareTTL := fs.Int("t", int(config.DefaultShareTTL.Minutes()), "default share lifetime (in minutes)")

	fs.IntVar(&config.DefaultShareMaxDownloads, "n", config.DefaultShareMaxDownloads, "default share download limit")
	fs.StringVar(&config.PublicBaseURL, "p", config.PublicBaseURL, "public base URL for share links")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.DefaultShareTTL = minutes(*shareTTL)
		}
	})
}
