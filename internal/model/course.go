package model

import (
	"slices"
	"time"
)

type Course struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PackageIDs []int64   `json:"package_ids"` // пакеты, в которые входит курс
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// IncludesPackage входит ли курс в пакет
func (c *Course) IncludesPackage(packageID int64) bool {
	return slices.Contains(c.PackageIDs, packageID)
}
