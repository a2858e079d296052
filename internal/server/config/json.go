package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/snugkisses/authtokens/internal/flagx"
	"github.com/snugkisses/authtokens/internal/timex"
)

// JsonConfig is the on-disk shape of the -config file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
// Absent fields keep their current value.
type JsonConfig struct {
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	Store                        *string         `json:"store"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	RedisAddr                    *string         `json:"redis_addr"`
	RedisPassword                *string         `json:"redis_password"`
	RedisDB                      *int            `json:"redis_db"`
	KeySource                    *string         `json:"key_source"`
	PrivateKeyPath               *string         `json:"private_key_path"`
	PublicKeyPath                *string         `json:"public_key_path"`
	RefreshKeyPath               *string         `json:"refresh_key_path"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	S3PrivateKeyObject           *string         `json:"s3_private_key_object"`
	S3PublicKeyObject            *string         `json:"s3_public_key_object"`
	S3RefreshKeyObject           *string         `json:"s3_refresh_key_object"`
	Issuer                       *string         `json:"issuer"`
	Audience                     *string         `json:"audience"`
	DefaultRole                  *string         `json:"default_role"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	StrictRevocation             *bool           `json:"strict_revocation"`
	PurgeInterval                *timex.Duration `json:"purge_interval"`
	LogBackend                   *string         `json:"log_backend"`
	LogLevel                     *string         `json:"log_level"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}

// parseJson loads the file named by -c or -config, if any, into config.
// Secrets (key material, S3 credentials, the internal service key) are only
// read from the environment.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.ConfigFileFlag()

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.Store, c.Store)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.RedisAddr, c.RedisAddr)
	set(&config.RedisPassword, c.RedisPassword)
	set(&config.RedisDB, c.RedisDB)
	set(&config.KeySource, c.KeySource)
	set(&config.PrivateKeyPath, c.PrivateKeyPath)
	set(&config.PublicKeyPath, c.PublicKeyPath)
	set(&config.RefreshKeyPath, c.RefreshKeyPath)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.S3PrivateKeyObject, c.S3PrivateKeyObject)
	set(&config.S3PublicKeyObject, c.S3PublicKeyObject)
	set(&config.S3RefreshKeyObject, c.S3RefreshKeyObject)
	set(&config.Issuer, c.Issuer)
	set(&config.Audience, c.Audience)
	set(&config.DefaultRole, c.DefaultRole)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	set(&config.StrictRevocation, c.StrictRevocation)
	setDuration(&config.PurgeInterval, c.PurgeInterval)
	set(&config.LogBackend, c.LogBackend)
	set(&config.LogLevel, c.LogLevel)
	return nil
}
