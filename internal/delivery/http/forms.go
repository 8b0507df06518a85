package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

const (
	maxBodyBytes      = 1 << 20
	maxFullNameLength = 100
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type orderForm struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Quantity    int    `json:"quantity"`
}

func (f *orderForm) validate() error {
	f.FullName = strings.TrimSpace(f.FullName)
	f.PhoneNumber = strings.ReplaceAll(strings.TrimSpace(f.PhoneNumber), " ", "")

	verr := entity.NewValidationError()
	switch {
	case f.FullName == "":
		verr.Add("full_name", "is required")
	case utf8.RuneCountInString(f.FullName) > maxFullNameLength:
		verr.Add("full_name", fmt.Sprintf("must be at most %d characters", maxFullNameLength))
	}
	if !phonePattern.MatchString(f.PhoneNumber) {
		verr.Add("phone_number", "must be 7 to 15 digits, optionally prefixed with +")
	}
	if f.Quantity < 1 {
		verr.Add("quantity", "must be a positive integer")
	}
	return verr.OrNil()
}

func (f orderForm) command(productID int64) entity.PlaceOrder {
	return entity.PlaceOrder{
		ProductID:   productID,
		FullName:    f.FullName,
		PhoneNumber: f.PhoneNumber,
		Quantity:    f.Quantity,
	}
}

type productForm struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Rating     float64         `json:"rating"`
	CategoryID int64           `json:"category_id"`
}

func (f productForm) product() entity.Product {
	return entity.Product{
		Name:       f.Name,
		Price:      f.Price,
		Quantity:   f.Quantity,
		Rating:     f.Rating,
		CategoryID: f.CategoryID,
	}
}

type categoryForm struct {
	Name string `json:"name"`
}

type commentForm struct {
	Text string `json:"text"`
}

type registerForm struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (f registerForm) validate() error {
	verr := entity.NewValidationError()
	if f.Password != f.PasswordConfirm {
		verr.Add("password_confirm", "passwords do not match")
	}
	return verr.OrNil()
}

type loginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
