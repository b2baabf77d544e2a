package config

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

/*
Validate checks everything the client needs before it talks to the backend:
- the analysis service URL resolves to an absolute http(s) URL
- every timeout is positive
- log level and format are known
- export format is supported, and S3 export has a bucket
- the local API has an address and an upload limit
*/
func (c *Config) Validate() error {
	base, err := c.ResolvedBaseURL()
	if err != nil {
		return err
	}
	if !hasHTTPScheme(base) {
		return fmt.Errorf("api.base_url must use http or https, got %q", base)
	}

	if c.Timeouts.Wake <= 0 {
		return errors.New("timeouts.wake must be positive")
	}
	if c.Timeouts.Analyze <= 0 {
		return errors.New("timeouts.analyze must be positive")
	}
	if c.Timeouts.ConnectionTest <= 0 {
		return errors.New("timeouts.connection_test must be positive")
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format)
	}

	if c.Export.Format != "txt" && c.Export.Format != "md" {
		return fmt.Errorf("export.format must be 'txt' or 'md', got %q", c.Export.Format)
	}
	if c.Export.S3.Enabled {
		if c.Export.S3.Bucket == "" {
			return errors.New("export.s3.bucket is required when export.s3.enabled is true")
		}
		if c.Export.S3.Region == "" {
			return errors.New("export.s3.region is required when export.s3.enabled is true")
		}
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}

	return nil
}

func hasHTTPScheme(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
