package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "PENDING"
	OrderStatusPaid          OrderStatus = "PAID"
	OrderStatusPartiallyPaid OrderStatus = "PARTIALLY_PAID"
	OrderStatusCancel        OrderStatus = "CANCEL"
)

type Order struct {
	ID         int64           `json:"id"`
	Status     OrderStatus     `json:"status"`
	TotalPrice decimal.Decimal `json:"total_price"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

// OrderedPackage купленный пакет занятий
type OrderedPackage struct {
	ID                  int64      `json:"id"`
	UserID              int64      `json:"user_id"`
	PackageID           int64      `json:"package_id"`
	PackageName         string     `json:"package_name"`
	NumberClass         int        `json:"number_class"` // оставшиеся занятия
	OriginalNumberClass int        `json:"original_number_class"`
	PaidNumberClass     int        `json:"paid_number_class"`
	ActivationDate      *time.Time `json:"activation_date"` // nil - пакет не активирован
	DayOfUse            int        `json:"day_of_use"`
	OrderID             *int64     `json:"order_id"` // nil - пакет выдан без заказа

	Order *Order `json:"order,omitempty"`
}

// Expiry дата окончания действия пакета
func (p *OrderedPackage) Expiry() (time.Time, bool) {
	if p.ActivationDate == nil {
		return time.Time{}, false
	}
	return p.ActivationDate.Add(time.Duration(p.DayOfUse) * 24 * time.Hour), true
}

// IsActivated пакет активирован и дата активации уже наступила
func (p *OrderedPackage) IsActivated(now time.Time) bool {
	return p.ActivationDate != nil && !p.ActivationDate.After(now)
}

// IsExpired срок действия истёк
func (p *OrderedPackage) IsExpired(now time.Time) bool {
	expiry, ok := p.Expiry()
	return ok && expiry.Before(now)
}

// IsValidAt пакет действует после now (expiry > now)
func (p *OrderedPackage) IsValidAt(now time.Time) bool {
	expiry, ok := p.Expiry()
	return ok && expiry.After(now)
}

// IsExhausted занятия закончились
func (p *OrderedPackage) IsExhausted() bool {
	return p.NumberClass <= 0
}

// UsedClasses сколько занятий уже списано
func (p *OrderedPackage) UsedClasses() int {
	return p.OriginalNumberClass - p.NumberClass
}

// PaidClasses количество оплаченных занятий; если не задано, считается от оплаченной суммы
func (p *OrderedPackage) PaidClasses() int {
	if p.PaidNumberClass > 0 || p.Order == nil || p.Order.TotalPrice.IsZero() {
		return p.PaidNumberClass
	}

	ratio := p.Order.PaidAmount.Div(p.Order.TotalPrice)
	return int(ratio.Mul(decimal.NewFromInt(int64(p.OriginalNumberClass))).Floor().IntPart())
}

// IsPaid заказ оплачен полностью или частично
func (p *OrderedPackage) IsPaid() bool {
	if p.Order == nil {
		return false
	}
	return p.Order.Status == OrderStatusPaid || p.Order.Status == OrderStatusPartiallyPaid
}

// IsPartiallyPaidInsufficient частичная оплата уже израсходована
func (p *OrderedPackage) IsPartiallyPaidInsufficient() bool {
	if p.Order == nil || p.Order.Status != OrderStatusPartiallyPaid {
		return false
	}
	return p.UsedClasses() >= p.PaidClasses()
}
