package main

import (
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

var seedCategories = []entity.Category{
	{Name: "Electronics"},
	{Name: "Furniture"},
	{Name: "Home"},
	{Name: "Accessories"},
}

// seedProducts reference seedCategories by 1-based position.
var seedProducts = []entity.Product{
	{Name: "Wireless Noise-Cancelling Headphones", Price: decimal.RequireFromString("349.99"), Quantity: 50, Rating: 4.6, CategoryID: 1},
	{Name: "Mechanical Keyboard RGB", Price: decimal.RequireFromString("179.99"), Quantity: 120, Rating: 4.3, CategoryID: 1},
	{Name: "Ultrawide Curved Monitor 34\"", Price: decimal.RequireFromString("699.99"), Quantity: 30, Rating: 4.8, CategoryID: 1},
	{Name: "Ergonomic Office Chair", Price: decimal.RequireFromString("549.99"), Quantity: 25, Rating: 3.9, CategoryID: 2},
	{Name: "Standing Desk Frame", Price: decimal.RequireFromString("399.00"), Quantity: 15, Rating: 4.1, CategoryID: 2},
	{Name: "Smart LED Desk Lamp", Price: decimal.RequireFromString("89.99"), Quantity: 200, Rating: 4.4, CategoryID: 3},
	{Name: "Ceramic Pour-Over Coffee Set", Price: decimal.RequireFromString("49.50"), Quantity: 60, Rating: 3.6, CategoryID: 3},
	{Name: "Premium Laptop Backpack", Price: decimal.RequireFromString("129.99"), Quantity: 80, Rating: 4.2, CategoryID: 4},
	{Name: "Leather Cable Organizer", Price: decimal.RequireFromString("24.99"), Quantity: 300, Rating: 3.2, CategoryID: 4},
}
