// Package sqldriver implements storage.Driver over database/sql. The sqlite
// and postgres packages embed it and supply their dialect.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/brainstream/pkg/frame"
	"github.com/papercomputeco/brainstream/pkg/storage"
)

// Dialect captures the differences between SQL backends.
type Dialect struct {
	Name string

	// Schema holds the statements creating the frames table and its indexes.
	Schema []string

	// Numbered placeholders ($1, $2, ...) instead of "?".
	Numbered bool
}

// Driver implements storage.Driver on a *sql.DB.
type Driver struct {
	DB      *sql.DB
	dialect Dialect
}

var _ storage.Driver = (*Driver)(nil)

// New wraps db and applies the dialect schema.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Driver, error) {
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create %s schema: %w", dialect.Name, err)
		}
	}
	return &Driver{DB: db, dialect: dialect}, nil
}

// rebind rewrites "?" placeholders for dialects that number them.
func (d *Driver) rebind(query string) string {
	if !d.dialect.Numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const columns = `id, event_id, connection_id, sequence, variant, event_type, frame_id, payload, received_at_ns, relayed_at_ns`

// Append inserts rec and sets its id.
func (d *Driver) Append(ctx context.Context, rec *storage.Record) error {
	if err := storage.Validate(rec); err != nil {
		return err
	}

	query := d.rebind(`INSERT INTO frames
		(event_id, connection_id, sequence, variant, event_type, frame_id, payload, received_at_ns, relayed_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := d.DB.QueryRowContext(ctx, query,
		rec.EventID,
		rec.ConnectionID,
		int64(rec.Sequence),
		rec.Variant,
		rec.Frame.Type,
		rec.Frame.ID,
		rec.Frame.Payload.Raw,
		unixNano(rec.Frame.ReceivedAt),
		unixNano(rec.RelayedAt),
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("inserting frame: %w", err)
	}
	return nil
}

// Get retrieves a record by id.
func (d *Driver) Get(ctx context.Context, id int64) (*storage.Record, error) {
	row := d.DB.QueryRowContext(ctx, d.rebind(`SELECT `+columns+` FROM frames WHERE id = ?`), id)

	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading frame %d: %w", id, err)
	}
	return rec, nil
}

// Recent returns up to limit records, newest first. A limit of zero or less
// returns everything.
func (d *Driver) Recent(ctx context.Context, limit int) ([]*storage.Record, error) {
	query := `SELECT ` + columns + ` FROM frames ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return d.query(ctx, query, args...)
}

// ByConnection returns up to limit records of one connection, newest first.
func (d *Driver) ByConnection(ctx context.Context, connectionID string, limit int) ([]*storage.Record, error) {
	query := `SELECT ` + columns + ` FROM frames WHERE connection_id = ? ORDER BY id DESC`
	args := []any{connectionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return d.query(ctx, query, args...)
}

// Count returns the number of stored records.
func (d *Driver) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := d.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM frames`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting frames: %w", err)
	}
	return n, nil
}

// Truncate deletes every record. Used by tests for isolation.
func (d *Driver) Truncate(ctx context.Context) error {
	_, err := d.DB.ExecContext(ctx, `DELETE FROM frames`)
	return err
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.DB.Close()
}

func (d *Driver) query(ctx context.Context, query string, args ...any) ([]*storage.Record, error) {
	rows, err := d.DB.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	defer rows.Close()

	out := make([]*storage.Record, 0)
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning frame: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*storage.Record, error) {
	var (
		rec                    storage.Record
		seq                    int64
		eventType, id, payload string
		receivedNs, relayedNs  int64
	)
	err := s.Scan(
		&rec.ID,
		&rec.EventID,
		&rec.ConnectionID,
		&seq,
		&rec.Variant,
		&eventType,
		&id,
		&payload,
		&receivedNs,
		&relayedNs,
	)
	if err != nil {
		return nil, err
	}

	rec.Sequence = uint64(seq)
	rec.Frame = frame.Restore(eventType, id, payload, fromUnixNano(receivedNs))
	rec.RelayedAt = fromUnixNano(relayedNs)
	return &rec, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
