// Package factory builds audit sinks from configuration entries.
package factory

import (
	"fmt"

	"github.com/gamesup/gamesup/internal/audit"
	"github.com/gamesup/gamesup/internal/audit/clickhouse"
)

// SinkConfig is one configured audit destination.
type SinkConfig struct {
	Type string `json:"type" mapstructure:"type"` // "sql" or "clickhouse"
	DSN  string `json:"dsn" mapstructure:"dsn"`

	// clickhouse only
	Database string `json:"database" mapstructure:"database"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Table    string `json:"table" mapstructure:"table"`
}

// Build constructs sinks for all entries, failing on the first bad one.
func Build(configs []SinkConfig) ([]audit.Sink, error) {
	sinks := make([]audit.Sink, 0, len(configs))
	for _, c := range configs {
		switch c.Type {
		case "sql":
			s, err := audit.NewSQLSink(c.DSN)
			if err != nil {
				return nil, fmt.Errorf("sql audit sink: %w", err)
			}
			sinks = append(sinks, s)
		case "clickhouse":
			s, err := clickhouse.New(clickhouse.Options{
				Addr:     c.DSN,
				Database: c.Database,
				Username: c.Username,
				Password: c.Password,
				Table:    c.Table,
			})
			if err != nil {
				return nil, fmt.Errorf("clickhouse audit sink: %w", err)
			}
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("unknown audit sink type %q", c.Type)
		}
	}
	return sinks, nil
}
