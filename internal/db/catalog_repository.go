package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/unklstewy/skytrack/pkg/bodies"
	"github.com/unklstewy/skytrack/pkg/catalog"
)

// ErrBodyNotFound is returned when a catalog object cannot be found.
var ErrBodyNotFound = errors.New("catalog object not found")

const fixedBodyColumns = `designation, name, classification, right_ascension, declination,
	constellation, dimension, magnitude, description`

// CatalogRepository stores the fixed bodies and planet elements.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ImportFixedBodies upserts objects by designation in one transaction and
// returns the number of rows written.
func (r *CatalogRepository) ImportFixedBodies(ctx context.Context, objects []bodies.FixedBody) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fixed_bodies (`+fixedBodyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (designation) DO UPDATE SET
			name = EXCLUDED.name,
			classification = EXCLUDED.classification,
			right_ascension = EXCLUDED.right_ascension,
			declination = EXCLUDED.declination,
			constellation = EXCLUDED.constellation,
			dimension = EXCLUDED.dimension,
			magnitude = EXCLUDED.magnitude,
			description = EXCLUDED.description
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare fixed body insert: %w", err)
	}
	defer stmt.Close()

	for i, obj := range objects {
		if _, err := stmt.ExecContext(ctx,
			obj.Designation,
			obj.Name,
			int(obj.Classification),
			obj.Position.RightAscension,
			obj.Position.Declination,
			obj.Constellation,
			obj.Dimension,
			obj.Magnitude,
			obj.Description,
		); err != nil {
			return i, fmt.Errorf("failed to store %s: %w", obj.Designation, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit fixed bodies: %w", err)
	}
	return len(objects), nil
}

// ImportPlanets replaces the planet table.
func (r *CatalogRepository) ImportPlanets(ctx context.Context, planets []bodies.Planet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM planets`); err != nil {
		return fmt.Errorf("failed to clear planets: %w", err)
	}

	for i, p := range planets {
		o, d := p.Orbit, p.Rate
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO planets (name,
				semi_major_axis, eccentricity, inclination, mean_longitude, lon_perihelion, lon_ascending_node,
				semi_major_axis_rate, eccentricity_rate, inclination_rate, mean_longitude_rate, lon_perihelion_rate, lon_ascending_node_rate,
				sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			p.Name,
			o.SemiMajorAxis, o.Eccentricity, o.Inclination, o.MeanLongitude, o.LonPerihelion, o.LonAscendingNode,
			d.SemiMajorAxis, d.Eccentricity, d.Inclination, d.MeanLongitude, d.LonPerihelion, d.LonAscendingNode,
			i,
		); err != nil {
			return fmt.Errorf("failed to store planet %s: %w", p.Name, err)
		}
	}

	return tx.Commit()
}

// ListPlanets returns the stored planets in import order.
func (r *CatalogRepository) ListPlanets(ctx context.Context) ([]bodies.Planet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name,
			semi_major_axis, eccentricity, inclination, mean_longitude, lon_perihelion, lon_ascending_node,
			semi_major_axis_rate, eccentricity_rate, inclination_rate, mean_longitude_rate, lon_perihelion_rate, lon_ascending_node_rate
		FROM planets
		ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("failed to query planets: %w", err)
	}
	defer rows.Close()

	var planets []bodies.Planet
	for rows.Next() {
		var p bodies.Planet
		o, d := &p.Orbit, &p.Rate
		if err := rows.Scan(&p.Name,
			&o.SemiMajorAxis, &o.Eccentricity, &o.Inclination, &o.MeanLongitude, &o.LonPerihelion, &o.LonAscendingNode,
			&d.SemiMajorAxis, &d.Eccentricity, &d.Inclination, &d.MeanLongitude, &d.LonPerihelion, &d.LonAscendingNode,
		); err != nil {
			return nil, fmt.Errorf("failed to scan planet: %w", err)
		}
		planets = append(planets, p)
	}

	return planets, rows.Err()
}

func scanFixedBody(row interface{ Scan(...any) error }) (bodies.FixedBody, error) {
	var obj bodies.FixedBody
	var class int
	err := row.Scan(
		&obj.Designation,
		&obj.Name,
		&class,
		&obj.Position.RightAscension,
		&obj.Position.Declination,
		&obj.Constellation,
		&obj.Dimension,
		&obj.Magnitude,
		&obj.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return obj, ErrBodyNotFound
	}
	if err != nil {
		return obj, fmt.Errorf("failed to scan fixed body: %w", err)
	}
	obj.Classification = bodies.Classification(class)
	obj.Position.Radius = 1
	return obj, nil
}

// GetFixedBody looks an object up by designation.
func (r *CatalogRepository) GetFixedBody(ctx context.Context, designation string) (bodies.FixedBody, error) {
	query := `SELECT ` + fixedBodyColumns + ` FROM fixed_bodies WHERE designation = $1`
	return scanFixedBody(r.db.QueryRowContext(ctx, query, catalog.NormalizeDesignation(designation)))
}

// buildSearchQuery turns a catalog filter into SQL with positional
// arguments. Results are ordered brightest first, objects without a
// magnitude last.
func buildSearchQuery(f catalog.Filter) (string, []any) {
	var where []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Name != "" {
		p := arg("%" + strings.ToLower(f.Name) + "%")
		where = append(where, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(designation) LIKE %s)", p, p))
	}
	if len(f.Classifications) > 0 {
		codes := make([]int64, len(f.Classifications))
		for i, c := range f.Classifications {
			codes[i] = int64(c)
		}
		where = append(where, "classification = ANY("+arg(pq.Array(codes))+")")
	}
	if f.Constellation != "" {
		where = append(where, "LOWER(constellation) = "+arg(strings.ToLower(f.Constellation)))
	}
	if f.MaxMagnitude != 0 {
		where = append(where, "magnitude <> 0 AND magnitude <= "+arg(f.MaxMagnitude))
	}

	query := `SELECT ` + fixedBodyColumns + ` FROM fixed_bodies`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY (magnitude = 0), magnitude, designation"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	return query, args
}

// SearchFixedBodies returns the objects matching f.
func (r *CatalogRepository) SearchFixedBodies(ctx context.Context, f catalog.Filter) ([]bodies.FixedBody, error) {
	query, args := buildSearchQuery(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search fixed bodies: %w", err)
	}
	defer rows.Close()

	var objects []bodies.FixedBody
	for rows.Next() {
		obj, err := scanFixedBody(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}

	return objects, rows.Err()
}

// LoadCatalog builds an in-memory catalog from the stored rows. Planets
// fall back to the built-in elements when the table is empty.
func (r *CatalogRepository) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	planets, err := r.ListPlanets(ctx)
	if err != nil {
		return nil, err
	}
	if len(planets) == 0 {
		planets = catalog.DefaultPlanets()
	}

	objects, err := r.SearchFixedBodies(ctx, catalog.Filter{})
	if err != nil {
		return nil, err
	}

	return catalog.New(planets, objects), nil
}
