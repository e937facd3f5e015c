package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unklstewy/skytrack/pkg/coordinates"
)

// ErrSiteNotFound is returned when an observation site cannot be found.
var ErrSiteNotFound = errors.New("observation site not found")

// ObservationSite is a named place a user observes from.
type ObservationSite struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	TimeZone  string    `json:"timezone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Geographic returns the site as an observer position.
func (s ObservationSite) Geographic() coordinates.Geographic {
	return coordinates.Geographic{Latitude: s.Latitude, Longitude: s.Longitude}
}

const siteColumns = `id, user_id, name, latitude, longitude, timezone, is_active, created_at, updated_at`

// SiteRepository provides methods for managing observation sites
type SiteRepository struct {
	db *DB
}

// NewSiteRepository creates a new observation site repository
func NewSiteRepository(db *DB) *SiteRepository {
	return &SiteRepository{db: db}
}

func scanSite(row interface{ Scan(...any) error }) (*ObservationSite, error) {
	var s ObservationSite
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Name,
		&s.Latitude,
		&s.Longitude,
		&s.TimeZone,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSiteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan observation site: %w", err)
	}
	return &s, nil
}

// List returns all sites of a user, the active one first
func (r *SiteRepository) List(ctx context.Context, userID int) ([]ObservationSite, error) {
	query := `SELECT ` + siteColumns + `
		FROM observation_sites
		WHERE user_id = $1
		ORDER BY is_active DESC, name ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query observation sites: %w", err)
	}
	defer rows.Close()

	var sites []ObservationSite
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, *s)
	}

	return sites, rows.Err()
}

// GetActive returns the active site of a user, or ErrSiteNotFound
func (r *SiteRepository) GetActive(ctx context.Context, userID int) (*ObservationSite, error) {
	query := `SELECT ` + siteColumns + `
		FROM observation_sites
		WHERE user_id = $1 AND is_active
		LIMIT 1`
	return scanSite(r.db.QueryRowContext(ctx, query, userID))
}

// Create stores a new, inactive site
func (r *SiteRepository) Create(ctx context.Context, site *ObservationSite) error {
	query := `
		INSERT INTO observation_sites (user_id, name, latitude, longitude, timezone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		site.UserID,
		site.Name,
		site.Latitude,
		site.Longitude,
		site.TimeZone,
	).Scan(&site.ID, &site.IsActive, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create observation site: %w", err)
	}

	return nil
}

// Delete deletes a site
func (r *SiteRepository) Delete(ctx context.Context, siteID, userID int) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM observation_sites WHERE id = $1 AND user_id = $2`, siteID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete observation site: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSiteNotFound
	}

	return nil
}

// SetActive makes one site the user's active site and deactivates the
// others in the same transaction.
func (r *SiteRepository) SetActive(ctx context.Context, siteID, userID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE observation_sites SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_active`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to clear active observation site: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE observation_sites SET is_active = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
		siteID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set active observation site: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSiteNotFound
	}

	return tx.Commit()
}
