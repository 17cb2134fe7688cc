// Package catalog provides product lookup backed by the static product
// table.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/levelup-gamer/storefront/internal/models"
)

var ErrProductNotFound = errors.New("catalog: product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByCode(ctx context.Context, code string) (*models.Product, error)
}

// InMemoryRepository implements ProductRepository over an in-memory
// table, preserving catalog order.
type InMemoryRepository struct {
	byCode map[string]models.Product
	order  []string
}

// NewInMemoryRepository builds a repository from a product slice.
func NewInMemoryRepository(products []models.Product) *InMemoryRepository {
	r := &InMemoryRepository{
		byCode: make(map[string]models.Product, len(products)),
	}
	for _, p := range products {
		if _, exists := r.byCode[p.Code]; !exists {
			r.order = append(r.order, p.Code)
		}
		r.byCode[p.Code] = p
	}
	return r
}

// NewFromFile loads the catalog from a static JSON file. A missing or
// corrupt file logs a warning and falls back to the seeded catalog so
// the storefront stays browsable.
func NewFromFile(path string, log *slog.Logger) *InMemoryRepository {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("product catalog unavailable, using seed data", "path", path, "error", err)
		return NewInMemoryRepository(SeedProducts())
	}

	var products []models.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		log.Warn("product catalog corrupt, using seed data", "path", path, "error", err)
		return NewInMemoryRepository(SeedProducts())
	}

	return NewInMemoryRepository(products)
}

// GetAll returns all products in catalog order.
func (r *InMemoryRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	products := make([]models.Product, 0, len(r.order))
	for _, code := range r.order {
		products = append(products, r.byCode[code])
	}
	return products, nil
}

// GetByCode returns a product by its code.
func (r *InMemoryRepository) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	product, exists := r.byCode[code]
	if !exists {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func stock(n int) *int { return &n }

// SeedProducts is the built-in catalog used when no product file is
// configured.
func SeedProducts() []models.Product {
	return []models.Product{
		{Code: "JM001", Name: "Catan", Price: 29990, Category: "Juegos de Mesa", Brand: "Devir", Stock: stock(25)},
		{Code: "JM002", Name: "Carcassonne", Price: 24990, Category: "Juegos de Mesa", Brand: "Devir", Stock: stock(18)},
		{Code: "AC001", Name: "Controlador Inalámbrico Xbox Series X", Price: 59990, Category: "Accesorios", Brand: "Microsoft", Stock: stock(40)},
		{Code: "AC002", Name: "Auriculares Gamer HyperX Cloud II", Price: 79990, Category: "Accesorios", Brand: "HyperX", Stock: stock(30)},
		{Code: "CO001", Name: "PlayStation 5", Price: 549990, Category: "Consolas", Brand: "Sony", Stock: stock(5)},
		{Code: "CG001", Name: "PC Gamer ASUS ROG Strix", Price: 1299990, Category: "Computadores Gamers", Brand: "ASUS", Stock: stock(3)},
		{Code: "SG001", Name: "Silla Gamer Secretlab Titan", Price: 349990, Category: "Sillas Gamers", Brand: "Secretlab", Stock: stock(8)},
		{Code: "MS001", Name: "Mouse Gamer Logitech G502 HERO", Price: 49990, Category: "Mouse", Brand: "Logitech", Stock: stock(50)},
		{Code: "MP001", Name: "Mousepad Razer Goliathus Extended Chroma", Price: 29990, Category: "Mousepad", Brand: "Razer", Stock: stock(35)},
		{Code: "PP001", Name: "Polera Gamer Personalizada Level-Up", Price: 14990, Category: "Poleras Personalizadas", Brand: "Level-Up", Stock: nil},
	}
}
