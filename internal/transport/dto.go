package transport

import "time"

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=100,password_strength"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expires      time.Time `json:"expires"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
}

type CategoryRequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type CategoryResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductRequest is bound from JSON or from multipart form fields.
// ImageBase64 is only read from JSON bodies.
type ProductRequest struct {
	Name        string  `json:"name"         form:"name"        validate:"required,min=2,max=200"`
	Description string  `json:"description"  form:"description" validate:"max=1000"`
	Price       float64 `json:"price"        form:"price"       validate:"gte=0.01,lte=999999.99"`
	Stock       int     `json:"stock"        form:"stock"       validate:"gte=0"`
	CategoryID  uint    `json:"category_id"  form:"category_id" validate:"required,gte=1"`
	ImageBase64 *string `json:"image_base64" form:"-"`
}

type ProductResponse struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Stock        int       `json:"stock"`
	CategoryID   uint      `json:"category_id"`
	CategoryName string    `json:"category_name"`
	ImageBase64  *string   `json:"image_base64,omitempty"`
	ImagePath    *string   `json:"image_path,omitempty"`
	ImageURL     *string   `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}
