package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ComplaintFilter captures admin search parameters.
type ComplaintFilter struct {
	OwnerID     *string
	Statuses    []domain.ComplaintStatus
	Categories  []domain.ComplaintCategory
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	Limit       int
	Offset      int
}

// ComplaintRepository encapsulates complaint persistence. Status and
// response writes are version-checked: a mismatch between the expected
// version and the stored one yields a CONFLICT error.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	GetByReference(ctx context.Context, reference string) (*domain.Complaint, error)
	UpdateContent(ctx context.Context, complaint *domain.Complaint) error
	UpdateStatus(ctx context.Context, id string, status domain.ComplaintStatus, expectedVersion int64) (*domain.Complaint, error)
	SetResponse(ctx context.Context, id, text string, expectedVersion int64) (*domain.Complaint, error)
	MarkResponseRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `id, reference, owner_id, title, description, category, location,
               status, response, response_read, version, created_at, updated_at`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (reference, owner_id, title, description, category, location, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		complaint.Reference,
		complaint.OwnerID,
		complaint.Title,
		complaint.Description,
		complaint.Category,
		complaint.Location,
		complaint.Status,
	).Scan(&complaint.ID, &complaint.Version, &complaint.CreatedAt, &complaint.UpdatedAt)
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE id=$1`, complaintColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *complaintRepository) GetByReference(ctx context.Context, reference string) (*domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE reference=$1`, complaintColumns)
	return r.fetchSingle(ctx, query, reference)
}

func (r *complaintRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&complaint.ID,
		&complaint.Reference,
		&complaint.OwnerID,
		&complaint.Title,
		&complaint.Description,
		&complaint.Category,
		&complaint.Location,
		&complaint.Status,
		&complaint.Response,
		&complaint.ResponseRead,
		&complaint.Version,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &complaint, nil
}

// UpdateContent patches the owner-editable fields, guarded by the version
// the caller read. The stored version is bumped on success.
func (r *complaintRepository) UpdateContent(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        UPDATE complaints SET title=$1, description=$2, category=$3, location=$4,
            version=version+1, updated_at=NOW()
        WHERE id=$5 AND version=$6
        RETURNING version, updated_at`
	err := r.pool.QueryRow(ctx, query,
		complaint.Title,
		complaint.Description,
		complaint.Category,
		complaint.Location,
		complaint.ID,
		complaint.Version,
	).Scan(&complaint.Version, &complaint.UpdatedAt)
	if err == pgx.ErrNoRows {
		return r.versionMiss(ctx, complaint.ID)
	}
	return err
}

func (r *complaintRepository) UpdateStatus(ctx context.Context, id string, status domain.ComplaintStatus, expectedVersion int64) (*domain.Complaint, error) {
	query := fmt.Sprintf(`
        UPDATE complaints SET status=$1, version=version+1, updated_at=NOW()
        WHERE id=$2 AND version=$3
        RETURNING %s`, complaintColumns)
	complaint, err := r.fetchSingleArgs(ctx, query, status, id, expectedVersion)
	if err == pgx.ErrNoRows {
		return nil, r.versionMiss(ctx, id)
	}
	return complaint, err
}

func (r *complaintRepository) SetResponse(ctx context.Context, id, text string, expectedVersion int64) (*domain.Complaint, error) {
	query := fmt.Sprintf(`
        UPDATE complaints SET response=$1, response_read=FALSE, version=version+1, updated_at=NOW()
        WHERE id=$2 AND version=$3
        RETURNING %s`, complaintColumns)
	complaint, err := r.fetchSingleArgs(ctx, query, text, id, expectedVersion)
	if err == pgx.ErrNoRows {
		return nil, r.versionMiss(ctx, id)
	}
	return complaint, err
}

func (r *complaintRepository) fetchSingleArgs(ctx context.Context, query string, args ...any) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&complaint.ID,
		&complaint.Reference,
		&complaint.OwnerID,
		&complaint.Title,
		&complaint.Description,
		&complaint.Category,
		&complaint.Location,
		&complaint.Status,
		&complaint.Response,
		&complaint.ResponseRead,
		&complaint.Version,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &complaint, nil
}

// versionMiss distinguishes a missing record from a stale version.
func (r *complaintRepository) versionMiss(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM complaints WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return apperrors.NewConflict("complaint was modified concurrently", map[string]any{"id": id})
	}
	return pgx.ErrNoRows
}

func (r *complaintRepository) MarkResponseRead(ctx context.Context, id string) error {
	const query = `
        UPDATE complaints SET response_read=TRUE, version=version+1, updated_at=NOW()
        WHERE id=$1 AND response IS NOT NULL AND response <> ''`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *complaintRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM complaints WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *complaintRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Complaint, error) {
	filter := ComplaintFilter{
		OwnerID: &ownerID,
		Limit:   limit,
		Offset:  offset,
	}
	return r.ListWithFilter(ctx, filter)
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	base := fmt.Sprintf(`SELECT %s FROM complaints`, complaintColumns)
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
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.UpdatedFrom != nil {
		args = append(args, *filter.UpdatedFrom)
		clauses = append(clauses, fmt.Sprintf("updated_at >= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(location) LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		var complaint domain.Complaint
		if err := rows.Scan(
			&complaint.ID,
			&complaint.Reference,
			&complaint.OwnerID,
			&complaint.Title,
			&complaint.Description,
			&complaint.Category,
			&complaint.Location,
			&complaint.Status,
			&complaint.Response,
			&complaint.ResponseRead,
			&complaint.Version,
			&complaint.CreatedAt,
			&complaint.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, complaint)
	}
	return result, rows.Err()
}
