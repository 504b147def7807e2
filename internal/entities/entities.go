package entities

import (
	"time"
)

// User is a credential record. The password is stored only as a bcrypt hash
// and is never serialized to JSON.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:100" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email"`
	Name         string    `gorm:"size:255" json:"name"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Product is a catalog entry. Prices are unit prices in the shop currency.
type Product struct {
	ID    uint    `gorm:"primaryKey" json:"id"`
	Name  string  `gorm:"uniqueIndex;size:255" json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}
