// Package clickhouse exports audit events to ClickHouse for long-term
// analytics over launcher activity.
package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/gamesup/gamesup/internal/audit"
)

type Sink struct {
	conn  driver.Conn
	table string
}

// Options carries connection parameters; zero values select the ClickHouse
// defaults (database "default", user "default").
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
	Table    string
}

func New(opts Options) (*Sink, error) {
	if opts.Database == "" {
		opts.Database = "default"
	}
	if opts.Username == "" {
		opts.Username = "default"
	}
	if opts.Table == "" {
		opts.Table = "gamesup_audit"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	s := &Sink{conn: conn, table: opts.Table}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		occurred_at DateTime,
		kind String,
		success UInt8,
		process_id String,
		pid Int64,
		elevated UInt8,
		details String
	) ENGINE = MergeTree() ORDER BY (occurred_at, process_id)`, s.table)
	return s.conn.Exec(ctx, ddl)
}

func (s *Sink) Send(ctx context.Context, e audit.Event) error {
	var details string
	if len(e.Details) > 0 {
		if b, err := json.Marshal(e.Details); err == nil {
			details = string(b)
		}
	}
	q := fmt.Sprintf(`INSERT INTO %s (occurred_at, kind, success, process_id, pid, elevated, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, s.table)
	if err := s.conn.Exec(ctx, q,
		e.OccurredAt, string(e.Kind), boolU8(e.Success), e.ProcessID, int64(e.PID), boolU8(e.Elevated), details,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func boolU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
