package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/snugkisses/authtokens/internal/flagx"
)

var shortFlags = []string{"-a", "-h", "-d", "-k", "-t", "-r", "-s", "-l"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-h string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-k string   key source: env, file or s3
//	-t int      access token validity, minutes
//	-r int      refresh token validity, hours
//	-s string   token store: postgres, redis or memory
//	-l string   log level
//
// os.Args is filtered with flagx.FilterArgs first, so -config and -env-file
// do not collide with these.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], shortFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "h", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.KeySource, "k", config.KeySource, "key source")
	fs.StringVar(&config.Store, "s", config.Store, "token store")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshHours := fs.Int("r", int(config.RefreshTokenValidityDuration.Hours()), "refresh token validity (in hours)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshHours) * time.Hour
		}
	})
	return nil
}
