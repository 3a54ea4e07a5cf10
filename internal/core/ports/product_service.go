package ports

import (
	"context"
	"io"

	"github.com/storefront/ecommerce-api/internal/core/domain"
)

// ProductInput carries the mutable fields of a product.
type ProductInput struct {
	Description string
	Price       int64
	ImageURL    string
	Stock       int
}

// UploadInput describes an uploaded product image.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ProductService defines use-case operations for the catalog.
type ProductService interface {
	List(ctx context.Context) ([]*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id string, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	UploadImage(ctx context.Context, input UploadInput) (string, error)
}

// ImageStorage stores a named blob and returns the URL it is reachable at.
type ImageStorage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}
