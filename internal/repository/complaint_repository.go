package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// ComplaintFilter captures listing parameters. Results are always newest first.
type ComplaintFilter struct {
	OwnerID  *string
	Status   *domain.ComplaintStatus
	Category *domain.ComplaintCategory
	Priority *domain.ComplaintPriority
	Limit    int
	Offset   int
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	Update(ctx context.Context, complaint *domain.Complaint) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Complaint, error)
	List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, int64, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
	StatsByOwners(ctx context.Context, ownerIDs []string) (map[string]domain.ComplaintStats, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `id, owner_id, title, description, category, address, images,
               status, priority, resolved_at, admin_notes, created_at, updated_at`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (owner_id, title, description, category, address, images, status, priority, resolved_at, admin_notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		complaint.OwnerID,
		complaint.Title,
		complaint.Description,
		complaint.Category,
		complaint.Address,
		imagesOrEmpty(complaint.Images),
		complaint.Status,
		complaint.Priority,
		complaint.ResolvedAt,
		complaint.AdminNotes,
	).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt)
	return translate(err)
}

func (r *complaintRepository) Update(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        UPDATE complaints SET title=$1, description=$2, category=$3, address=$4, images=$5,
            status=$6, priority=$7, resolved_at=$8, admin_notes=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		complaint.Title,
		complaint.Description,
		complaint.Category,
		complaint.Address,
		imagesOrEmpty(complaint.Images),
		complaint.Status,
		complaint.Priority,
		complaint.ResolvedAt,
		complaint.AdminNotes,
		complaint.ID,
	).Scan(&complaint.UpdatedAt)
	return translate(err)
}

func (r *complaintRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM complaints WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id=$1`, id)
	complaint, err := scanComplaint(row)
	if err != nil {
		return nil, translate(err)
	}
	return complaint, nil
}

func (r *complaintRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Complaint, error) {
	const query = `SELECT ` + complaintColumns + ` FROM complaints WHERE owner_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM complaints WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, translate(err)
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		complaintColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err)
	}
	defer rows.Close()
	complaints, err := scanComplaints(rows)
	if err != nil {
		return nil, 0, err
	}
	return complaints, total, nil
}

func (r *complaintRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM complaints WHERE owner_id=$1`, ownerID)
	if err != nil {
		return 0, translate(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *complaintRepository) StatsByOwners(ctx context.Context, ownerIDs []string) (map[string]domain.ComplaintStats, error) {
	stats := make(map[string]domain.ComplaintStats, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return stats, nil
	}
	const query = `
        SELECT owner_id, status, COUNT(*)
        FROM complaints WHERE owner_id = ANY($1::uuid[])
        GROUP BY owner_id, status`
	rows, err := r.pool.Query(ctx, query, ownerIDs)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ownerID string
			status  domain.ComplaintStatus
			count   int64
		)
		if err := rows.Scan(&ownerID, &status, &count); err != nil {
			return nil, err
		}
		s := stats[ownerID]
		s.Add(status, count)
		stats[ownerID] = s
	}
	return stats, rows.Err()
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := row.Scan(
		&complaint.ID,
		&complaint.OwnerID,
		&complaint.Title,
		&complaint.Description,
		&complaint.Category,
		&complaint.Address,
		&complaint.Images,
		&complaint.Status,
		&complaint.Priority,
		&complaint.ResolvedAt,
		&complaint.AdminNotes,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if complaint.Images == nil {
		complaint.Images = []domain.Image{}
	}
	return &complaint, nil
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	result := []domain.Complaint{}
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *complaint)
	}
	return result, rows.Err()
}

func imagesOrEmpty(images []domain.Image) []domain.Image {
	if images == nil {
		return []domain.Image{}
	}
	return images
}
