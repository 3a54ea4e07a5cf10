package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/storefront/ecommerce-api/internal/core/domain"
	"github.com/storefront/ecommerce-api/internal/core/ports"
)

const DefaultMaxImageBytes = 5 << 20

// sniffLen is how much of an upload is inspected to detect its real type.
const sniffLen = 3072

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ProductService implements catalog CRUD and image upload.
type ProductService struct {
	repo          ports.ProductRepository
	images        ports.ImageStorage
	maxImageBytes int64
	logger        zerolog.Logger
	now           func() time.Time
}

func NewProductService(repo ports.ProductRepository, images ports.ImageStorage, maxImageBytes int64, logger zerolog.Logger) *ProductService {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &ProductService{
		repo:          repo,
		images:        images,
		maxImageBytes: maxImageBytes,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *ProductService) List(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ProductService) Create(ctx context.Context, input ports.ProductInput) (*domain.Product, error) {
	now := s.now().UTC()
	p := &domain.Product{
		Description: input.Description,
		Price:       input.Price,
		ImageURL:    input.ImageURL,
		Stock:       input.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info().Str("product_id", created.ID).Msg("product created")
	return created, nil
}

// Update replaces the mutable fields of an existing product.
func (s *ProductService) Update(ctx context.Context, id string, input ports.ProductInput) (*domain.Product, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Description = input.Description
	existing.Price = input.Price
	existing.ImageURL = input.ImageURL
	existing.Stock = input.Stock
	existing.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// UploadImage stores an image under a unique name and returns its public URL.
// Both the declared content type and the sniffed leading bytes must be an
// image; the sniffed type is what gets stored.
func (s *ProductService) UploadImage(ctx context.Context, input ports.UploadInput) (string, error) {
	if !strings.HasPrefix(input.ContentType, "image/") {
		return "", domain.ErrUnsupportedMedia
	}
	if input.Size > s.maxImageBytes {
		return "", domain.ErrImageTooLarge
	}

	body, contentType, err := sniffImage(input.Body)
	if err != nil {
		return "", err
	}

	name := ImageObjectName(input.FileName, s.now())
	url, err := s.images.Save(ctx, name, body, input.Size, contentType)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	s.logger.Info().Str("object", name).Int64("bytes", input.Size).Msg("image uploaded")
	return url, nil
}

// sniffImage detects the type of r from its first bytes and returns a reader
// that still yields the whole content.
func sniffImage(r io.Reader) (io.Reader, string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, "", domain.ErrUnsupportedMedia
	}
	return io.MultiReader(bytes.NewReader(head), r), detected.String(), nil
}

// ImageObjectName builds "<unix-millis>_<uuid>_<sanitised base name>".
func ImageObjectName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("%d_%s_%s", now.UnixMilli(), uuid.NewString(), base)
}
