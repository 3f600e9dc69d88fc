// Package thread implements the thread repository using PostgreSQL.
// Each owner has one live thread set, replaced wholesale on save, plus an
// archive of threads moved out for age.
package thread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/labassist-backend/internal/adapter/postgres"
	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var messageColumns = []string{
	"owner_id", "thread_id", "id", "position", "role", "content", "ts", "is_streaming", "classification", "metadata",
}

// Repo provides thread persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
	tx   *postgres.TxManager
}

// New creates a new thread repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool, tx: postgres.NewTxManager(pool)}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// SaveThreads replaces the owner's live thread set with threads. Live
// threads missing from the set are deleted. Archived threads are untouched,
// including ones a stale client still sends as live.
func (r *Repo) SaveThreads(ctx context.Context, ownerID uuid.UUID, threads []domain.Thread) error {
	return r.tx.RunInTxLocked(ctx, lockKey(ownerID), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.pool)

		ids := make([]string, len(threads))
		for i, t := range threads {
			ids[i] = t.ID
		}
		del := psql.Delete("threads").
			Where(sq.Eq{"owner_id": ownerID, "archived_at": nil}).
			Where(sq.NotEq{"id": ids})
		if err := exec(ctx, q, del); err != nil {
			return fmt.Errorf("delete stale threads: %w", err)
		}

		for _, t := range threads {
			if err := r.upsert(ctx, q, ownerID, t, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// Archive moves threads into the owner's archive. Threads not yet stored
// are inserted first.
func (r *Repo) Archive(ctx context.Context, ownerID uuid.UUID, threads []domain.Thread, at time.Time) error {
	return r.tx.RunInTxLocked(ctx, lockKey(ownerID), func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.pool)
		for _, t := range threads {
			if err := r.upsert(ctx, q, ownerID, t, &at); err != nil {
				return err
			}
		}
		return nil
	})
}

// onConflict keeps an archived row archived. A live save that names an
// archived id matches no row, so the caller leaves its messages alone.
const (
	onConflictLive = `ON CONFLICT (owner_id, id) DO UPDATE SET
			title = EXCLUDED.title,
			updated_at = EXCLUDED.updated_at
		WHERE threads.archived_at IS NULL
		RETURNING id`
	onConflictArchive = `ON CONFLICT (owner_id, id) DO UPDATE SET
			title = EXCLUDED.title,
			updated_at = EXCLUDED.updated_at,
			archived_at = COALESCE(threads.archived_at, EXCLUDED.archived_at)
		RETURNING id`
)

func (r *Repo) upsert(ctx context.Context, q postgres.Querier, ownerID uuid.UUID, t domain.Thread, archivedAt *time.Time) error {
	suffix := onConflictLive
	if archivedAt != nil {
		suffix = onConflictArchive
	}
	query, args, err := psql.Insert("threads").
		Columns("owner_id", "id", "title", "created_at", "updated_at", "archived_at").
		Values(ownerID, t.ID, t.Title, t.CreatedAt, t.UpdatedAt, archivedAt).
		Suffix(suffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var id string
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return postgres.MapError(err, "thread", t.ID)
	}

	del := psql.Delete("messages").Where(sq.Eq{"owner_id": ownerID, "thread_id": t.ID})
	if err := exec(ctx, q, del); err != nil {
		return postgres.MapError(err, "thread", t.ID)
	}
	if len(t.Messages) == 0 {
		return nil
	}

	msgs := psql.Insert("messages").Columns(messageColumns...)
	for i, m := range t.Messages {
		classification, err := marshalNullable(m.Verdict)
		if err != nil {
			return fmt.Errorf("message %s marshal classification: %w", m.ID, err)
		}
		metadata, err := marshalNullable(m.Metadata)
		if err != nil {
			return fmt.Errorf("message %s marshal metadata: %w", m.ID, err)
		}
		msgs = msgs.Values(ownerID, t.ID, m.ID, i, string(m.Role), m.Content, m.Timestamp, m.IsStreaming, classification, metadata)
	}
	if err := exec(ctx, q, msgs); err != nil {
		return postgres.MapError(err, "thread", t.ID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// ListThreads returns one page of the owner's live threads in creation
// order, with their messages. Pages start at 1.
func (r *Repo) ListThreads(ctx context.Context, ownerID uuid.UUID, page, limit int) (domain.ThreadPage, error) {
	if page < 1 {
		page = 1
	}
	q := postgres.QuerierFromCtx(ctx, r.pool)
	live := sq.Eq{"owner_id": ownerID, "archived_at": nil}

	var total int
	countSQL, countArgs, err := psql.Select("count(*)").From("threads").Where(live).ToSql()
	if err != nil {
		return domain.ThreadPage{}, fmt.Errorf("build count query: %w", err)
	}
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return domain.ThreadPage{}, fmt.Errorf("count threads: %w", err)
	}

	listSQL, listArgs, err := psql.Select("id", "title", "created_at", "updated_at").
		From("threads").
		Where(live).
		OrderBy("created_at", "id").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return domain.ThreadPage{}, fmt.Errorf("build list query: %w", err)
	}
	rows, err := q.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return domain.ThreadPage{}, fmt.Errorf("list threads: %w", err)
	}
	var threads []domain.Thread
	index := make(map[string]int)
	for rows.Next() {
		var t domain.Thread
		if err := rows.Scan(&t.ID, &t.Title, &t.CreatedAt, &t.UpdatedAt); err != nil {
			rows.Close()
			return domain.ThreadPage{}, fmt.Errorf("scan thread: %w", err)
		}
		t.Messages = []domain.Message{}
		index[t.ID] = len(threads)
		threads = append(threads, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.ThreadPage{}, fmt.Errorf("list threads: %w", err)
	}
	if len(threads) == 0 {
		return domain.ThreadPage{Threads: []domain.Thread{}, Total: total}, nil
	}

	ids := make([]string, len(threads))
	for i, t := range threads {
		ids[i] = t.ID
	}
	msgSQL, msgArgs, err := psql.Select("thread_id", "id", "role", "content", "ts", "is_streaming", "classification", "metadata").
		From("messages").
		Where(sq.Eq{"owner_id": ownerID, "thread_id": ids}).
		OrderBy("thread_id", "position").
		ToSql()
	if err != nil {
		return domain.ThreadPage{}, fmt.Errorf("build message query: %w", err)
	}
	mrows, err := q.Query(ctx, msgSQL, msgArgs...)
	if err != nil {
		return domain.ThreadPage{}, fmt.Errorf("list messages: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var (
			threadID       string
			m              domain.Message
			role           string
			classification []byte
			metadata       []byte
		)
		if err := mrows.Scan(&threadID, &m.ID, &role, &m.Content, &m.Timestamp, &m.IsStreaming, &classification, &metadata); err != nil {
			return domain.ThreadPage{}, fmt.Errorf("scan message: %w", err)
		}
		m.Role = domain.MessageRole(role)
		if len(classification) > 0 {
			if err := json.Unmarshal(classification, &m.Verdict); err != nil {
				return domain.ThreadPage{}, fmt.Errorf("message %s unmarshal classification: %w", m.ID, err)
			}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
				return domain.ThreadPage{}, fmt.Errorf("message %s unmarshal metadata: %w", m.ID, err)
			}
		}
		i := index[threadID]
		threads[i].Messages = append(threads[i].Messages, m)
	}
	if err := mrows.Err(); err != nil {
		return domain.ThreadPage{}, fmt.Errorf("list messages: %w", err)
	}

	return domain.ThreadPage{Threads: threads, Total: total}, nil
}

// CountArchived returns how many threads the owner has archived.
func (r *Repo) CountArchived(ctx context.Context, ownerID uuid.UUID) (int, error) {
	query, args, err := psql.Select("count(*)").
		From("threads").
		Where(sq.Eq{"owner_id": ownerID}).
		Where(sq.NotEq{"archived_at": nil}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var n int
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count archived threads: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// lockKey serialises writers of one owner's thread set.
func lockKey(ownerID uuid.UUID) string {
	return "threads:" + ownerID.String()
}

func exec(ctx context.Context, q postgres.Querier, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = q.Exec(ctx, query, args...)
	return err
}

func marshalNullable(v any) ([]byte, error) {
	switch x := v.(type) {
	case *domain.Verdict:
		if x == nil {
			return nil, nil
		}
	case map[string]any:
		if len(x) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
