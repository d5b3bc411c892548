package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate rejects configurations the node cannot start with.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return fmt.Errorf("config: ListenAddress %q: %w", c.ListenAddress, err)
	}
	switch c.Storage {
	case StorageLevelDB, StorageBolt:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("config: DataDir required for %s storage", c.Storage)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("config: unsupported Storage %q", c.Storage)
	}
	if strings.ContainsAny(c.Referral.ServiceDomain, "/ \t") {
		return fmt.Errorf("config: Referral.ServiceDomain %q must be a bare host", c.Referral.ServiceDomain)
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("config: RateLimit values must not be negative")
	}
	for _, entry := range c.RateLimit.TrustedProxies {
		if !validProxyEntry(entry) {
			return fmt.Errorf("config: RateLimit.TrustedProxies entry %q is not an IP or CIDR", entry)
		}
	}
	if c.Indexer.Enabled {
		switch c.Indexer.Driver {
		case "sqlite":
		case "postgres":
			if strings.TrimSpace(c.Indexer.DSN) == "" {
				return fmt.Errorf("config: Indexer.DSN required for postgres")
			}
		default:
			return fmt.Errorf("config: unsupported Indexer.Driver %q", c.Indexer.Driver)
		}
	}
	if (c.Telemetry.Traces || c.Telemetry.Metrics) && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("config: Telemetry.Endpoint required when exporting")
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("config: Logging rotation limits must not be negative")
	}
	return nil
}

func validProxyEntry(entry string) bool {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}
