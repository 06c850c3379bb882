package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"toppick-workers/internal/common/logger"
	"toppick-workers/internal/models"
)

const backendPostgres = "postgres"

const productColumns = `id, title, price, image_url, instructor, description, category, brand, created_at, view_count, purchase_count, rating`

const (
	recentQuery = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id ASC LIMIT $1`

	recentByBrandQuery = `SELECT ` + productColumns + ` FROM products WHERE brand = $1 ORDER BY created_at DESC, id ASC LIMIT $2`

	getQuery = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	insertQuery = `INSERT INTO products (` + productColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	updateQuery = `UPDATE products SET title = $2, price = $3, image_url = $4, instructor = $5, description = $6, category = $7, brand = $8, created_at = $9, view_count = $10, purchase_count = $11, rating = $12 WHERE id = $1`

	deleteQuery = `DELETE FROM products WHERE id = $1`
)

// PostgresStore keeps products in the products table.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"catalogBackend": backendPostgres}),
	}
}

func (s *PostgresStore) Recent(ctx context.Context, q models.CandidateQuery) ([]models.Product, error) {
	limit := NormalizeLimit(q.Limit)

	var (
		rows *sql.Rows
		err  error
	)
	if q.Brand != "" {
		rows, err = s.db.QueryContext(ctx, recentByBrandQuery, q.Brand, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, recentQuery, limit)
	}
	if err != nil {
		return nil, readError(ctx, backendPostgres, err)
	}
	defer rows.Close()

	products := make([]models.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, readError(ctx, backendPostgres, fmt.Errorf("scan product: %w", err))
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(ctx, backendPostgres, err)
	}

	s.logger.Debug("candidates loaded", map[string]interface{}{
		"brand": q.Brand,
		"count": len(products),
	})
	return products, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, getQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, readError(ctx, backendPostgres, err)
	}
	return p, nil
}

func (s *PostgresStore) Insert(ctx context.Context, p *models.Product) error {
	if _, err := s.db.ExecContext(ctx, insertQuery, productArgs(p)...); err != nil {
		return writeError(string(models.CatalogActionInsert), err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Product) error {
	res, err := s.db.ExecContext(ctx, updateQuery, productArgs(p)...)
	if err != nil {
		return writeError(string(models.CatalogActionUpdate), err)
	}
	return expectOneRow(res, models.CatalogActionUpdate)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		return writeError(string(models.CatalogActionDelete), err)
	}
	return expectOneRow(res, models.CatalogActionDelete)
}

func expectOneRow(res sql.Result, action models.CatalogAction) error {
	n, err := res.RowsAffected()
	if err != nil {
		return writeError(string(action), err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProduct tolerates NULL in every column except id, so a malformed row
// still ranks: missing price reads as 0 and missing created_at as the zero
// time.
func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p                                        models.Product
		title, imageURL, instructor, description sql.NullString
		category, brand                          sql.NullString
		price, rating                            sql.NullFloat64
		createdAt                                sql.NullTime
		views, purchases                         sql.NullInt64
	)

	if err := row.Scan(
		&p.ID, &title, &price, &imageURL, &instructor, &description,
		&category, &brand, &createdAt, &views, &purchases, &rating,
	); err != nil {
		return nil, err
	}

	p.Title = title.String
	p.Price = price.Float64
	p.ImageURL = imageURL.String
	p.Instructor = instructor.String
	p.Description = description.String
	p.Category = category.String
	p.Brand = brand.String
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if views.Valid {
		v := int(views.Int64)
		p.ViewCount = &v
	}
	if purchases.Valid {
		v := int(purchases.Int64)
		p.PurchaseCount = &v
	}
	if rating.Valid {
		v := rating.Float64
		p.Rating = &v
	}
	return &p, nil
}

func productArgs(p *models.Product) []interface{} {
	return []interface{}{
		p.ID,
		p.Title,
		p.Price,
		nullString(p.ImageURL),
		nullString(p.Instructor),
		nullString(p.Description),
		p.Category,
		nullString(p.Brand),
		p.CreatedAt,
		nullInt(p.ViewCount),
		nullInt(p.PurchaseCount),
		nullFloat(p.Rating),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
