package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-place-recommendations/internal/types"
)

// ErrPlaceNotFound is returned when a lookup matches no live row.
var ErrPlaceNotFound = errors.New("place not found")

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the relational store adapter for place records. All
// reads filter out soft-deleted rows.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.Place, error)
	// GetByIDs is best-effort: unparseable ids are skipped and the
	// returned set may be a strict subset of the input. Input order is
	// not preserved; callers re-associate by id.
	GetByIDs(ctx context.Context, ids []string) ([]types.Place, error)
	GetAll(ctx context.Context, offset, limit int) ([]types.Place, error)
	Count(ctx context.Context) (int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// PGXQuerier is the pgxpool surface the repository needs. Satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type PGXQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     PGXQuerier
}

func NewRepository(db PGXQuerier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

const placeColumns = `
        id, name, description, latitude, longitude, category,
        rating, price_level, price_average, price_currency, address,
        created_at, updated_at`

func scanPlace(row pgx.Row) (*types.Place, error) {
	var p types.Place
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Latitude, &p.Longitude, &p.Category,
		&p.Rating, &p.PriceLevel, &p.PriceAverage, &p.PriceCurrency, &p.Address,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*types.Place, error) {
	query := `SELECT` + placeColumns + `
        FROM places
        WHERE id = $1 AND deleted_at IS NULL`

	place, err := scanPlace(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlaceNotFound
		}
		return nil, fmt.Errorf("failed to get place by id: %w", err)
	}
	return place, nil
}

func (r *RepositoryImpl) GetByIDs(ctx context.Context, ids []string) ([]types.Place, error) {
	// Skip ids the vector index returned that are not valid UUIDs; a
	// malformed id must not fail the whole resolution.
	uuids := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping unparseable place id", slog.String("id", raw))
			continue
		}
		uuids = append(uuids, id)
	}
	if len(uuids) == 0 {
		return []types.Place{}, nil
	}

	query := `SELECT` + placeColumns + `
        FROM places
        WHERE id = ANY($1) AND deleted_at IS NULL`

	rows, err := r.db.Query(ctx, query, uuids)
	if err != nil {
		return nil, fmt.Errorf("failed to get places by ids: %w", err)
	}
	defer rows.Close()

	return collectPlaces(rows)
}

func (r *RepositoryImpl) GetAll(ctx context.Context, offset, limit int) ([]types.Place, error) {
	query := `SELECT` + placeColumns + `
        FROM places
        WHERE deleted_at IS NULL
        ORDER BY created_at, id
        OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	return collectPlaces(rows)
}

func (r *RepositoryImpl) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM places WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count places: %w", err)
	}
	return count, nil
}

// SoftDelete marks the row deleted without removing it; subsequent reads
// no longer see it.
func (r *RepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE places SET deleted_at = now(), updated_at = now()
        WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlaceNotFound
	}
	return nil
}

func collectPlaces(rows pgx.Rows) ([]types.Place, error) {
	var places []types.Place
	for rows.Next() {
		var p types.Place
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Latitude, &p.Longitude, &p.Category,
			&p.Rating, &p.PriceLevel, &p.PriceAverage, &p.PriceCurrency, &p.Address,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}
	return places, nil
}
