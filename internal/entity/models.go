package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products in the catalog.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product represents a product in the store.
type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Rating     float64         `json:"rating"`
	CategoryID int64           `json:"category_id"`
}

// InStock reports whether n units can be taken from the product.
func (p Product) InStock(n int) bool {
	return p.Quantity >= n
}

// Order records a customer's purchase of a single product. Orders are never
// modified after creation.
type Order struct {
	ID          string    `json:"id"`
	ProductID   int64     `json:"product_id"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

// Comment is a customer comment on a product.
type Comment struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	Text       string    `json:"text"`
	IsNegative bool      `json:"is_negative"`
	CreatedAt  time.Time `json:"created_at"`
}

// User is a registered storefront account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProductDetail is a product together with what its page displays.
type ProductDetail struct {
	Product  Product   `json:"product"`
	Category *Category `json:"category,omitempty"`
	Comments []Comment `json:"comments"`
	Related  []Product `json:"related_products"`
}

// RankedProduct is a product with its bestseller score.
type RankedProduct struct {
	Product Product `json:"product"`
	Sold    int64   `json:"sold"`
}

// --- Commands ---

// PlaceOrder is a command to buy Quantity units of a product.
type PlaceOrder struct {
	ProductID   int64  `json:"product_id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Quantity    int    `json:"quantity"`
}

// RegisterUser is a command to create an account.
type RegisterUser struct {
	Username string
	Email    string
	Password string
}
