package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderedPackage_Expiry(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	activated := now.AddDate(0, 0, -30)

	p := &OrderedPackage{ActivationDate: &activated, DayOfUse: 20, NumberClass: 3}
	expiry, ok := p.Expiry()
	assert.True(t, ok)
	assert.Equal(t, activated.AddDate(0, 0, 20), expiry)
	assert.True(t, p.IsExpired(now))
	assert.False(t, p.IsValidAt(now))
	assert.True(t, p.IsActivated(now))

	p.DayOfUse = 60
	assert.False(t, p.IsExpired(now))
	assert.True(t, p.IsValidAt(now))

	inactive := &OrderedPackage{DayOfUse: 60}
	_, ok = inactive.Expiry()
	assert.False(t, ok)
	assert.False(t, inactive.IsActivated(now))
	assert.False(t, inactive.IsExpired(now))
	assert.False(t, inactive.IsValidAt(now))
}

func TestOrderedPackage_Exhausted(t *testing.T) {
	assert.True(t, (&OrderedPackage{NumberClass: 0}).IsExhausted())
	assert.True(t, (&OrderedPackage{NumberClass: -1}).IsExhausted())
	assert.False(t, (&OrderedPackage{NumberClass: 1}).IsExhausted())
}

func TestOrderedPackage_Payment(t *testing.T) {
	unpaid := &OrderedPackage{Order: &Order{Status: OrderStatusPending}}
	assert.False(t, unpaid.IsPaid())
	assert.False(t, (&OrderedPackage{}).IsPaid())

	paid := &OrderedPackage{Order: &Order{Status: OrderStatusPaid}}
	assert.True(t, paid.IsPaid())
	assert.False(t, paid.IsPartiallyPaidInsufficient())

	// половина суммы за 10 занятий -> оплачено 5, использовано 5
	partial := &OrderedPackage{
		OriginalNumberClass: 10,
		NumberClass:         5,
		Order: &Order{
			Status:     OrderStatusPartiallyPaid,
			TotalPrice: decimal.NewFromInt(1000),
			PaidAmount: decimal.NewFromInt(500),
		},
	}
	assert.Equal(t, 5, partial.PaidClasses())
	assert.True(t, partial.IsPaid())
	assert.True(t, partial.IsPartiallyPaidInsufficient())

	partial.NumberClass = 6
	assert.False(t, partial.IsPartiallyPaidInsufficient())

	// явное количество оплаченных занятий важнее суммы
	partial.PaidNumberClass = 3
	assert.Equal(t, 3, partial.PaidClasses())
	assert.True(t, partial.IsPartiallyPaidInsufficient())
}
