package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/shopfabrik/payment-svc/internal/dal/postgres"
	"github.com/shopfabrik/payment-svc/internal/service/models/product"
)

// ProductDal represents the product data access layer model.
type ProductDal struct {
	Id        int64
	Title     string
	Price     decimal.Decimal
	Stock     int
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ToModel converts ProductDal to the service layer Product model.
func (p *ProductDal) ToModel() product.Product {
	return product.Product{
		ID:        p.Id,
		Title:     p.Title,
		Price:     p.Price,
		Stock:     p.Stock,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type PostgresProductRepository struct {
	conn postgres.Querier
}

func NewPostgresProductRepository(conn postgres.Querier) *PostgresProductRepository {
	return &PostgresProductRepository{
		conn: conn,
	}
}

// ListByIDs returns the products with the given ids.
func (r *PostgresProductRepository) ListByIDs(
	ctx context.Context,
	ids []int64,
) ([]product.Product, error) {
	if len(ids) == 0 {
		return []product.Product{}, nil
	}

	query, args, err := sq.Select("id", "title", "price", "stock", "is_active", "created_at", "updated_at").
		From("products").
		Where(sq.Eq{"id": ids}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var result []product.Product
	for rows.Next() {
		var dal ProductDal
		err := rows.Scan(
			&dal.Id,
			&dal.Title,
			&dal.Price,
			&dal.Stock,
			&dal.IsActive,
			&dal.CreatedAt,
			&dal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result = append(result, dal.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// DecrementStock conditionally decrements stock by quantity. The stock
// check and the decrement run in one statement under the enclosing
// transaction's isolation, so concurrent settlements cannot lose updates.
func (r *PostgresProductRepository) DecrementStock(
	ctx context.Context,
	productID int64,
	quantity int,
) (bool, error) {
	query, args, err := sq.Update("products").
		Set("stock", sq.Expr("stock - ?", quantity)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": productID}).
		Where(sq.GtOrEq{"stock": quantity}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
