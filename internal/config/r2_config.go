package config

import (
	"fmt"
	"net/url"
)

// ExportStorage points at the S3-compatible bucket (Cloudflare R2 in
// production) that archived report exports are written to.
type ExportStorage struct {
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	Bucket         string `mapstructure:"bucket"`
	Region         string `mapstructure:"region"`
	Prefix         string `mapstructure:"prefix"`
	PresignMinutes int    `mapstructure:"presign_minutes"`
}

// Enabled is true when enough is configured to reach the bucket.
func (e ExportStorage) Enabled() bool {
	return e.Bucket != "" && e.AccessKey != "" && e.SecretKey != ""
}

// DSN builds the pgx connection string for the main database.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:   c.Database.Name,
	}
	if c.Database.SSLMode != "" {
		u.RawQuery = "sslmode=" + c.Database.SSLMode
	}
	return u.String()
}
