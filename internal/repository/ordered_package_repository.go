package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type OrderedPackageRepository struct {
	pool *pgxpool.Pool
}

func NewOrderedPackageRepository(pool *pgxpool.Pool) *OrderedPackageRepository {
	return &OrderedPackageRepository{pool: pool}
}

// GetByID получает купленный пакет вместе с заказом
func (r *OrderedPackageRepository) GetByID(ctx context.Context, id int64) (*model.OrderedPackage, error) {
	query := `
		SELECT op.id, op.user_id, op.package_id, op.package_name, op.number_class, op.original_number_class,
			op.paid_number_class, op.activation_date, op.day_of_use, op.order_id,
			o.id, o.status, o.total_price, o.paid_amount
		FROM ordered_packages op
		LEFT JOIN orders o ON o.id = op.order_id
		WHERE op.id = $1
	`

	var (
		pkg         model.OrderedPackage
		orderID     *int64
		orderStatus *string
		totalPrice  decimal.NullDecimal
		paidAmount  decimal.NullDecimal
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&pkg.ID,
		&pkg.UserID,
		&pkg.PackageID,
		&pkg.PackageName,
		&pkg.NumberClass,
		&pkg.OriginalNumberClass,
		&pkg.PaidNumberClass,
		&pkg.ActivationDate,
		&pkg.DayOfUse,
		&pkg.OrderID,
		&orderID,
		&orderStatus,
		&totalPrice,
		&paidAmount,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ordered package by id: %w", err)
	}

	if orderID != nil {
		pkg.Order = &model.Order{
			ID:         *orderID,
			TotalPrice: totalPrice.Decimal,
			PaidAmount: paidAmount.Decimal,
		}
		if orderStatus != nil {
			pkg.Order.Status = model.OrderStatus(*orderStatus)
		}
	}

	return &pkg, nil
}
