// Package audit implements the audit log repository using PostgreSQL.
// It provides append-only operations for audit entries.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/labassist-backend/internal/adapter/postgres"
	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repo provides audit log persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new audit repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Insert appends entries in one statement. Entries whose id is already
// stored are skipped, so a client retrying a batch does not duplicate it.
// It returns the number of rows written.
func (r *Repo) Insert(ctx context.Context, entries []domain.AuditEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	ins := psql.Insert("audit_logs").Columns(
		"id", "ts", "event_type", "severity", "user_id", "session_id",
		"resource_type", "resource_id", "outcome", "data_classification", "checksum", "entry",
	)
	for _, e := range entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("audit_log %s marshal: %w", e.ID, err)
		}
		ins = ins.Values(
			e.ID, e.Timestamp, string(e.EventType), string(e.Severity), e.UserID, e.SessionID,
			e.ResourceType, e.ResourceID, string(e.Outcome), string(e.Classification), e.Checksum, raw,
		)
	}
	query, args, err := ins.Suffix("ON CONFLICT (id) DO NOTHING").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return 0, postgres.MapError(err, "audit_log", entries[0].ID.String())
	}
	return int(tag.RowsAffected()), nil
}

// Write stores a batch as an audit transport.
func (r *Repo) Write(ctx context.Context, entries []domain.AuditEntry) error {
	_, err := r.Insert(ctx, entries)
	return err
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// ListByResource returns the history of one resource, newest first.
func (r *Repo) ListByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]domain.AuditEntry, error) {
	return r.list(ctx, psql.Select("entry").
		From("audit_logs").
		Where(sq.Eq{"resource_type": resourceType, "resource_id": resourceID}).
		OrderBy("ts DESC", "id").
		Limit(uint64(limit)))
}

// ListByUser returns the entries attributed to a user, newest first, with
// pagination.
func (r *Repo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditEntry, error) {
	return r.list(ctx, psql.Select("entry").
		From("audit_logs").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("ts DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
}

func (r *Repo) list(ctx context.Context, b sq.SelectBuilder) ([]domain.AuditEntry, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit_logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit_log: %w", err)
		}
		var e domain.AuditEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("unmarshal audit_log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit_logs: %w", err)
	}
	return entries, nil
}
