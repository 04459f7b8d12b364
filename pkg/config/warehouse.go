package config

import (
	"fmt"
	"time"

	"github.com/e3sm/warehouse/internal/telemetry"
	"github.com/e3sm/warehouse/pkg/catalog"
)

type WarehouseConfig struct {
	// Base is the root of the warehouse tree, where dataset directories and
	// their status logs live.
	Base string `mapstructure:"base" yaml:"base" validate:"required"`
}

const (
	CatalogFS = "fs"
	CatalogS3 = "s3"
)

// CatalogConfig selects where published files are looked up.
type CatalogConfig struct {
	Kind          string        `mapstructure:"kind" yaml:"kind" validate:"omitempty,oneof=fs s3"`
	LookupTimeout time.Duration `mapstructure:"lookup_timeout" yaml:"lookup_timeout" validate:"gte=0"`
	CacheSize     int           `mapstructure:"cache_size" yaml:"cache_size" validate:"gte=0"`
	// Ext keeps only files with this extension.
	Ext string   `mapstructure:"ext" yaml:"ext"`
	S3  S3Config `mapstructure:"s3" yaml:"s3"`
}

func (c CatalogConfig) Validate() error {
	if c.Kind != CatalogS3 {
		return nil
	}
	if c.S3.Endpoint == "" || c.S3.Bucket == "" {
		return fmt.Errorf("catalog.s3.endpoint and catalog.s3.bucket are required for the s3 catalog")
	}
	return nil
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Region    string `mapstructure:"region" yaml:"region"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

func (s S3Config) ClientConfig() catalog.S3Config {
	return catalog.S3Config{
		Endpoint:  s.Endpoint,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		Region:    s.Region,
		UseSSL:    s.UseSSL,
	}
}

type CheckConfig struct {
	Parallelism int  `mapstructure:"parallelism" yaml:"parallelism" validate:"gte=0"`
	Record      bool `mapstructure:"record" yaml:"record"`
	// SpecFile is a YAML dataset spec declaring spans and variables.
	SpecFile string `mapstructure:"spec_file" yaml:"spec_file"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" validate:"omitempty,hostname_port"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`
}

func (t TelemetryConfig) Telemetry() telemetry.Config {
	return telemetry.Config{Enabled: t.Enabled, Endpoint: t.Endpoint, Insecure: t.Insecure}
}
