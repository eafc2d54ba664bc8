package models

import (
	"time"
)

type User struct {
	ID                 uint       `gorm:"primaryKey;autoIncrement"                      json:"id"`
	Username           string     `gorm:"size:100;not null;uniqueIndex:idx_users_username" json:"username"`
	Email              string     `gorm:"size:255;not null;uniqueIndex:idx_users_email"    json:"email"`
	PasswordHash       string     `gorm:"size:500;not null"                             json:"-"`
	RefreshToken       *string    `gorm:"size:500"                                      json:"-"`
	RefreshTokenExpiry *time.Time `                                                     json:"-"`
	CreatedAt          time.Time  `gorm:"not null"                                      json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null"                                      json:"updated_at"`
}

// Category is referenced by products through Product.CategoryID only.
type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"                          json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex:idx_categories_name" json:"name"`
	Description string    `gorm:"size:500;not null;default:''"                     json:"description"`
	CreatedAt   time.Time `gorm:"not null"                                          json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null"                                          json:"updated_at"`
}

// Product keeps at most one of ImageBase64 and ImagePath set.
type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"          json:"id"`
	Name        string    `gorm:"size:200;not null"                 json:"name"`
	Description string    `gorm:"size:1000;not null;default:''"    json:"description"`
	Price       float64   `gorm:"type:decimal(18,2);not null"       json:"price"`
	Stock       int       `gorm:"not null"                          json:"stock"`
	CategoryID  uint      `gorm:"not null;index:idx_products_category_id" json:"category_id"`
	ImageBase64 *string   `gorm:"type:text"                         json:"image_base64,omitempty"`
	ImagePath   *string   `gorm:"size:500"                          json:"image_path,omitempty"`
	CreatedAt   time.Time `gorm:"not null"                          json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null"                          json:"updated_at"`
}
