package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Skotchmaster/inventory_api/internal/es"
	"github.com/Skotchmaster/inventory_api/internal/images"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/models"
	"github.com/Skotchmaster/inventory_api/internal/mykafka"
	"github.com/Skotchmaster/inventory_api/internal/repo"
	"github.com/Skotchmaster/inventory_api/internal/transport"
)

const (
	imageSubfolder = "products"

	minPrice = 0.01
	maxPrice = 999999.99
)

type ProductService struct {
	UoW    repo.Factory
	Images images.Store
	Events mykafka.Publisher
	Index  ProductIndexer
}

func roundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

func validateProduct(req transport.ProductRequest) error {
	n := utf8.RuneCountInString(strings.TrimSpace(req.Name))
	switch {
	case n < 2 || n > 200:
		return newError(ErrValidation, "product name must be 2..200 characters")
	case utf8.RuneCountInString(req.Description) > 1000:
		return newError(ErrValidation, "product description must be at most 1000 characters")
	case roundPrice(req.Price) < minPrice || roundPrice(req.Price) > maxPrice:
		return newError(ErrValidation, "price must be between 0.01 and 999999.99")
	case req.Stock < 0:
		return newError(ErrValidation, "stock cannot be negative")
	case req.CategoryID < 1:
		return newError(ErrValidation, "category_id is required")
	}
	if req.ImageBase64 != nil && *req.ImageBase64 != "" {
		if err := images.ValidateDataURI(*req.ImageBase64); err != nil {
			return newError(ErrValidation, "%s", err.Error())
		}
	}
	return nil
}

func (s *ProductService) imageURL(p *models.Product) *string {
	if p.ImagePath == nil || *p.ImagePath == "" || s.Images == nil {
		return nil
	}
	u := s.Images.URL(*p.ImagePath)
	return &u
}

func (s *ProductService) toResponse(p *models.Product, categoryName string) transport.ProductResponse {
	return transport.ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Stock:        p.Stock,
		CategoryID:   p.CategoryID,
		CategoryName: categoryName,
		ImageBase64:  p.ImageBase64,
		ImagePath:    p.ImagePath,
		ImageURL:     s.imageURL(p),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// withCategoryNames resolves category names for a page of products in one query.
func (s *ProductService) withCategoryNames(ctx context.Context, uow *repo.UnitOfWork, products []models.Product) ([]transport.ProductResponse, error) {
	out := make([]transport.ProductResponse, 0, len(products))
	if len(products) == 0 {
		return out, nil
	}

	seen := make(map[uint]struct{}, len(products))
	ids := make([]uint, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.CategoryID]; !ok {
			seen[p.CategoryID] = struct{}{}
			ids = append(ids, p.CategoryID)
		}
	}

	categories, err := uow.Categories().Find(ctx, repo.Where("id IN ?", ids))
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	for i := range products {
		out = append(out, s.toResponse(&products[i], names[products[i].CategoryID]))
	}
	return out, nil
}

func (s *ProductService) List(ctx context.Context) ([]transport.ProductResponse, error) {
	uow := s.UoW.New()
	defer uow.Close()

	products, err := uow.Products().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.withCategoryNames(ctx, uow, products)
}

func (s *ProductService) Get(ctx context.Context, id uint) (*transport.ProductResponse, error) {
	uow := s.UoW.New()
	defer uow.Close()

	p, err := uow.Products().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, newError(ErrNotFound, "Product with ID %d not found", id)
	}

	c, err := uow.Categories().GetByID(ctx, p.CategoryID)
	if err != nil {
		return nil, err
	}
	name := ""
	if c != nil {
		name = c.Name
	}
	resp := s.toResponse(p, name)
	return &resp, nil
}

func (s *ProductService) ListByCategory(ctx context.Context, categoryID uint) ([]transport.ProductResponse, error) {
	uow := s.UoW.New()
	defer uow.Close()

	c, err := uow.Categories().GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, newError(ErrNotFound, "Category with ID %d not found", categoryID)
	}

	products, err := uow.Products().Find(ctx, repo.Where("category_id = ?", categoryID))
	if err != nil {
		return nil, err
	}

	out := make([]transport.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, s.toResponse(&products[i], c.Name))
	}
	return out, nil
}

// matchesKeyword folds case with Go's Unicode tables so matching does not
// depend on the database collation or on SQLite's ASCII-only LOWER.
func matchesKeyword(p *models.Product, keyword string) bool {
	return strings.Contains(strings.ToLower(p.Name), keyword) ||
		strings.Contains(strings.ToLower(p.Description), keyword)
}

// Search matches keyword case-insensitively against name or description.
// A blank keyword lists every product.
func (s *ProductService) Search(ctx context.Context, keyword string) ([]transport.ProductResponse, error) {
	if strings.TrimSpace(keyword) == "" {
		return s.List(ctx)
	}

	uow := s.UoW.New()
	defer uow.Close()

	all, err := uow.Products().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	keyword = strings.ToLower(keyword)
	products := make([]models.Product, 0, len(all))
	for i := range all {
		if matchesKeyword(&all[i], keyword) {
			products = append(products, all[i])
		}
	}
	return s.withCategoryNames(ctx, uow, products)
}

func (s *ProductService) category(ctx context.Context, uow *repo.UnitOfWork, id uint) (*models.Category, error) {
	c, err := uow.Categories().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, newError(ErrNotFound, "Category with ID %d not found", id)
	}
	return c, nil
}

// attach stores upload on p, either inline as a data URI or in the image
// store. It returns the path written to the store, if any.
func (s *ProductService) attach(ctx context.Context, p *models.Product, upload *images.Upload, useBase64 bool) (string, error) {
	if useBase64 || s.Images == nil {
		uri, err := images.ToDataURI(upload)
		if err != nil {
			return "", err
		}
		p.ImageBase64 = &uri
		p.ImagePath = nil
		return "", nil
	}

	if err := images.Validate(upload); err != nil {
		return "", err
	}
	path, err := s.Images.Save(ctx, imageSubfolder, upload)
	if err != nil {
		return "", err
	}
	p.ImagePath = &path
	p.ImageBase64 = nil
	return path, nil
}

func (s *ProductService) removeStored(ctx context.Context, path string) {
	if path == "" || s.Images == nil {
		return
	}
	if _, err := s.Images.Delete(ctx, path); err != nil {
		logging.FromContext(ctx).Warn("image_delete_failed", "path", path, "error", err)
	}
}

func storedPath(p *models.Product) string {
	if p.ImagePath == nil {
		return ""
	}
	return *p.ImagePath
}

func saveError(err error, categoryID uint) error {
	if errors.Is(err, repo.ErrForeignKey) {
		return newError(ErrNotFound, "Category with ID %d not found", categoryID)
	}
	return err
}

func (s *ProductService) Create(ctx context.Context, req transport.ProductRequest) (*transport.ProductResponse, error) {
	return s.create(ctx, req, nil, false)
}

func (s *ProductService) CreateWithImage(ctx context.Context, req transport.ProductRequest, upload *images.Upload, useBase64 bool) (*transport.ProductResponse, error) {
	return s.create(ctx, req, upload, useBase64)
}

func (s *ProductService) create(ctx context.Context, req transport.ProductRequest, upload *images.Upload, useBase64 bool) (*transport.ProductResponse, error) {
	l := logging.FromContext(ctx).With("svc", "product.create")

	if err := validateProduct(req); err != nil {
		return nil, err
	}

	uow := s.UoW.New()
	defer uow.Close()

	c, err := s.category(ctx, uow, req.CategoryID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       roundPrice(req.Price),
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.ImageBase64 != nil && *req.ImageBase64 != "" {
		p.ImageBase64 = req.ImageBase64
	}

	var written string
	if upload != nil {
		if written, err = s.attach(ctx, p, upload, useBase64); err != nil {
			return nil, err
		}
	}

	uow.Products().Add(p)
	if _, err := uow.Save(ctx); err != nil {
		s.removeStored(ctx, written)
		l.Warn("create_product_error", "error", err)
		return nil, saveError(err, req.CategoryID)
	}

	resp := s.toResponse(p, c.Name)
	s.afterWrite(ctx, "product_created", resp)
	return &resp, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, req transport.ProductRequest) (*transport.ProductResponse, error) {
	return s.update(ctx, id, req, nil, false)
}

func (s *ProductService) UpdateWithImage(ctx context.Context, id uint, req transport.ProductRequest, upload *images.Upload, useBase64 bool) (*transport.ProductResponse, error) {
	return s.update(ctx, id, req, upload, useBase64)
}

// update replaces the product's fields. A non-nil ImageBase64 in req replaces
// the image; nil keeps the current one unless an upload is given.
func (s *ProductService) update(ctx context.Context, id uint, req transport.ProductRequest, upload *images.Upload, useBase64 bool) (*transport.ProductResponse, error) {
	l := logging.FromContext(ctx).With("svc", "product.update")

	if err := validateProduct(req); err != nil {
		return nil, err
	}

	uow := s.UoW.New()
	defer uow.Close()

	p, err := uow.Products().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, newError(ErrNotFound, "Product with ID %d not found", id)
	}

	c, err := s.category(ctx, uow, req.CategoryID)
	if err != nil {
		return nil, err
	}

	previous := storedPath(p)

	p.Name = req.Name
	p.Description = req.Description
	p.Price = roundPrice(req.Price)
	p.Stock = req.Stock
	p.CategoryID = req.CategoryID
	p.UpdatedAt = time.Now().UTC()

	var written string
	switch {
	case upload != nil:
		if written, err = s.attach(ctx, p, upload, useBase64); err != nil {
			return nil, err
		}
	case req.ImageBase64 != nil:
		if *req.ImageBase64 == "" {
			p.ImageBase64 = nil
		} else {
			p.ImageBase64 = req.ImageBase64
			p.ImagePath = nil
		}
	}

	uow.Products().Update(p)
	if _, err := uow.Save(ctx); err != nil {
		s.removeStored(ctx, written)
		l.Warn("update_product_error", "error", err)
		return nil, saveError(err, req.CategoryID)
	}

	if previous != "" && previous != storedPath(p) {
		s.removeStored(ctx, previous)
	}

	resp := s.toResponse(p, c.Name)
	s.afterWrite(ctx, "product_updated", resp)
	return &resp, nil
}

// Delete reports false when the product does not exist.
func (s *ProductService) Delete(ctx context.Context, id uint) (bool, error) {
	l := logging.FromContext(ctx).With("svc", "product.delete")

	uow := s.UoW.New()
	defer uow.Close()

	p, err := uow.Products().GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}

	uow.Products().Delete(p)
	if _, err := uow.Save(ctx); err != nil {
		l.Error("delete_product_error", "error", err)
		return false, err
	}

	s.removeStored(ctx, storedPath(p))
	publish(ctx, s.Events, mykafka.TopicProductEvents, id, "product_deleted", map[string]uint{"id": id})
	s.unindex(ctx, id)
	return true, nil
}

func (s *ProductService) UploadImage(ctx context.Context, id uint, upload *images.Upload, useBase64 bool) (*transport.ProductResponse, error) {
	l := logging.FromContext(ctx).With("svc", "product.upload_image")

	if upload == nil {
		return nil, newError(ErrValidation, "no file provided")
	}

	uow := s.UoW.New()
	defer uow.Close()

	p, err := uow.Products().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, newError(ErrNotFound, "Product with ID %d not found", id)
	}

	previous := storedPath(p)
	written, err := s.attach(ctx, p, upload, useBase64)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()

	uow.Products().Update(p)
	if _, err := uow.Save(ctx); err != nil {
		s.removeStored(ctx, written)
		l.Error("upload_image_error", "error", err)
		return nil, err
	}
	s.removeStored(ctx, previous)

	c, err := uow.Categories().GetByID(ctx, p.CategoryID)
	if err != nil {
		return nil, err
	}
	name := ""
	if c != nil {
		name = c.Name
	}

	resp := s.toResponse(p, name)
	s.afterWrite(ctx, "product_updated", resp)
	return &resp, nil
}

// DeleteImage clears both image fields. It reports false when the product
// does not exist.
func (s *ProductService) DeleteImage(ctx context.Context, id uint) (bool, error) {
	uow := s.UoW.New()
	defer uow.Close()

	p, err := uow.Products().GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}

	previous := storedPath(p)
	p.ImageBase64 = nil
	p.ImagePath = nil
	p.UpdatedAt = time.Now().UTC()

	uow.Products().Update(p)
	if _, err := uow.Save(ctx); err != nil {
		return false, err
	}
	s.removeStored(ctx, previous)
	return true, nil
}

func toDocument(resp transport.ProductResponse) es.ProductDocument {
	doc := es.ProductDocument{
		ID:           resp.ID,
		Name:         resp.Name,
		Description:  resp.Description,
		Price:        resp.Price,
		Stock:        resp.Stock,
		CategoryID:   resp.CategoryID,
		CategoryName: resp.CategoryName,
		UpdatedAt:    resp.UpdatedAt,
	}
	if resp.ImageURL != nil {
		doc.ImageURL = *resp.ImageURL
	}
	return doc
}

// afterWrite publishes the change and mirrors it into the search index.
// Inline image data is left out of the event.
func (s *ProductService) afterWrite(ctx context.Context, typ string, resp transport.ProductResponse) {
	event := resp
	event.ImageBase64 = nil
	publish(ctx, s.Events, mykafka.TopicProductEvents, resp.ID, typ, event)
	if s.Index == nil {
		return
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := s.Index.IndexProduct(ictx, toDocument(resp)); err != nil {
		logging.FromContext(ctx).Warn("index_product_failed", "product_id", resp.ID, "error", err)
	}
}

func (s *ProductService) unindex(ctx context.Context, id uint) {
	if s.Index == nil {
		return
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := s.Index.DeleteProduct(ictx, id); err != nil {
		logging.FromContext(ctx).Warn("unindex_product_failed", "product_id", id, "error", err)
	}
}
