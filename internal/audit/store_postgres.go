package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists audit records via its own pgx pool. Owning the pool
// matters: audit writes run on their own connections, in their own implicit
// transactions, so a rolled-back business write never takes the audit record
// down with it and a failed audit write never touches the business
// transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a dedicated pool for the audit trail.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create audit pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

var _ Store = (*PostgresStore)(nil)

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

const recordColumns = `id, entity_type, entity_id, action, old_value, new_value,
	actor_user_id, actor_ip, actor_user_agent, correlation_id, created_at`

func (s *PostgresStore) Append(ctx context.Context, rec *Record) error {
	oldJSON, err := marshalSnapshot(rec.OldValue)
	if err != nil {
		return fmt.Errorf("marshal old value: %w", err)
	}
	newJSON, err := marshalSnapshot(rec.NewValue)
	if err != nil {
		return fmt.Errorf("marshal new value: %w", err)
	}

	query := `
		INSERT INTO audit_records (
			entity_type, entity_id, action, old_value, new_value,
			actor_user_id, actor_ip, actor_user_agent, correlation_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err = s.pool.QueryRow(ctx, query,
		rec.EntityType,
		rec.EntityID,
		string(rec.Action),
		oldJSON,
		newJSON,
		rec.ActorUserID,
		rec.ActorIP,
		rec.ActorUserAgent,
		rec.CorrelationID,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, filter Filter) (Page, error) {
	where, args := buildWhere(filter)

	var total int
	countQuery := "SELECT count(*) FROM audit_records" + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count audit records: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM audit_records%s ORDER BY created_at DESC, id DESC`,
		recordColumns, where)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("search audit records: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return Page{}, err
	}
	return Page{Records: records, Total: total}, nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_records
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC`, recordColumns)

	rows, err := s.pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit records by entity: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *PostgresStore) ListByCorrelation(ctx context.Context, correlationID uuid.UUID) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_records
		WHERE correlation_id = $1
		ORDER BY created_at ASC, id ASC`, recordColumns)

	rows, err := s.pool.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("list audit records by correlation: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *PostgresStore) ListByActor(ctx context.Context, actorUserID int64, limit int) ([]Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_records
		WHERE actor_user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, recordColumns)

	rows, err := s.pool.Query(ctx, query, actorUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records by actor: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func buildWhere(filter Filter) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}
	if filter.ActorUserID != nil {
		add("actor_user_id = $%d", *filter.ActorUserID)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(entity_type ILIKE $%d OR old_value::text ILIKE $%d OR new_value::text ILIKE $%d)", n, n, n))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec     Record
		action  string
		oldJSON []byte
		newJSON []byte
	)

	err := row.Scan(
		&rec.ID,
		&rec.EntityType,
		&rec.EntityID,
		&action,
		&oldJSON,
		&newJSON,
		&rec.ActorUserID,
		&rec.ActorIP,
		&rec.ActorUserAgent,
		&rec.CorrelationID,
		&rec.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("scan audit record: %w", err)
	}

	rec.Action = Action(action)
	if rec.OldValue, err = unmarshalSnapshot(oldJSON); err != nil {
		return Record{}, fmt.Errorf("unmarshal old value: %w", err)
	}
	if rec.NewValue, err = unmarshalSnapshot(newJSON); err != nil {
		return Record{}, fmt.Errorf("unmarshal new value: %w", err)
	}
	return rec, nil
}

func marshalSnapshot(snap Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, nil
	}
	return json.Marshal(snap)
}

func unmarshalSnapshot(payload []byte) (Snapshot, error) {
	if len(payload) == 0 || string(payload) == "null" {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}
