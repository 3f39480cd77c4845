package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

const requestColumns = `id, owner_id, description, location, contact_info,
               category, priority, status, created_at, updated_at`

// RequestFilter captures list query parameters.
type RequestFilter struct {
	OwnerID  *string
	Statuses []domain.RequestStatus
	Limit    int
	Offset   int
}

// StatusCounts aggregates requests for the stats endpoint.
type StatusCounts struct {
	Total      int64
	ByStatus   map[string]int64
	ByCategory map[string]int64
	ByPriority map[string]int64
}

// RequestRepository encapsulates maintenance request persistence. Transition,
// classification and delete operate on a locked row so concurrent writers on
// the same record serialize.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.MaintenanceRequest) error
	GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error)
	ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.MaintenanceRequest, error)
	TransitionStatus(ctx context.Context, id string, next domain.RequestStatus) (*domain.MaintenanceRequest, error)
	ApplyClassification(ctx context.Context, id string, category domain.RequestCategory, priority domain.RequestPriority) (*domain.MaintenanceRequest, error)
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context) (*StatusCounts, error)
	PurgeCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

func (r *requestRepository) Create(ctx context.Context, req *domain.MaintenanceRequest) error {
	const query = `
        INSERT INTO requests (owner_id, description, location, contact_info, category, priority, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		req.OwnerID,
		req.Description,
		req.Location,
		req.ContactInfo,
		req.Category,
		req.Priority,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id=$1`, requestColumns)
	return scanRequest(r.pool.QueryRow(ctx, query, id))
}

func (r *requestRepository) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.MaintenanceRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		requestColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// TransitionStatus moves a request forward in the status order. The row is
// locked for the duration of the check-and-update so a concurrent transition,
// classification or delete on the same record serializes against it.
func (r *requestRepository) TransitionStatus(ctx context.Context, id string, next domain.RequestStatus) (*domain.MaintenanceRequest, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	lockQuery := fmt.Sprintf(`SELECT %s FROM requests WHERE id=$1 FOR UPDATE`, requestColumns)
	current, err := scanRequest(tx.QueryRow(ctx, lockQuery, id))
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(current.Status, next) {
		return nil, apperrors.NewInvalidTransition(string(current.Status), string(next))
	}

	updateQuery := fmt.Sprintf(`UPDATE requests SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING %s`, requestColumns)
	updated, err := scanRequest(tx.QueryRow(ctx, updateQuery, next, id))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// ApplyClassification writes category/priority only while both are still
// pending, so a retried or duplicate callback hits zero rows instead of
// overwriting the first result.
func (r *requestRepository) ApplyClassification(ctx context.Context, id string, category domain.RequestCategory, priority domain.RequestPriority) (*domain.MaintenanceRequest, error) {
	query := fmt.Sprintf(`
        UPDATE requests SET category=$1, priority=$2, updated_at=NOW()
        WHERE id=$3 AND category='pending' AND priority='pending'
        RETURNING %s`, requestColumns)

	updated, err := scanRequest(r.pool.QueryRow(ctx, query, category, priority, id))
	if err == nil {
		return updated, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	// Zero rows: either the record is gone or it was already classified.
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if existing.Classified() {
		return nil, apperrors.NewAlreadyClassified(id)
	}
	return nil, err
}

func (r *requestRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) Counts(ctx context.Context) (*StatusCounts, error) {
	counts := &StatusCounts{
		ByStatus:   make(map[string]int64),
		ByCategory: make(map[string]int64),
		ByPriority: make(map[string]int64),
	}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM requests`).Scan(&counts.Total); err != nil {
		return nil, err
	}

	groups := []struct {
		column string
		dest   map[string]int64
	}{
		{"status", counts.ByStatus},
		{"category", counts.ByCategory},
		{"priority", counts.ByPriority},
	}
	for _, group := range groups {
		query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM requests GROUP BY %s`, group.column, group.column)
		rows, err := r.pool.Query(ctx, query)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var key string
			var count int64
			if err := rows.Scan(&key, &count); err != nil {
				rows.Close()
				return nil, err
			}
			group.dest[key] = count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return counts, nil
}

func (r *requestRepository) PurgeCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM requests WHERE status='completed' AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanRequest(row pgx.Row) (*domain.MaintenanceRequest, error) {
	var req domain.MaintenanceRequest
	if err := row.Scan(
		&req.ID,
		&req.OwnerID,
		&req.Description,
		&req.Location,
		&req.ContactInfo,
		&req.Category,
		&req.Priority,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func scanRequests(rows pgx.Rows) ([]domain.MaintenanceRequest, error) {
	var result []domain.MaintenanceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}
