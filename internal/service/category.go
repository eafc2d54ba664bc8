package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/models"
	"github.com/Skotchmaster/inventory_api/internal/mykafka"
	"github.com/Skotchmaster/inventory_api/internal/repo"
	"github.com/Skotchmaster/inventory_api/internal/transport"
)

type CategoryService struct {
	UoW    repo.Factory
	Events mykafka.Publisher
}

func toCategoryResponse(c *models.Category) transport.CategoryResponse {
	return transport.CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func validateCategory(req transport.CategoryRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > 100 {
		return newError(ErrValidation, "category name must be 1..100 characters")
	}
	if utf8.RuneCountInString(req.Description) > 500 {
		return newError(ErrValidation, "category description must be at most 500 characters")
	}
	return nil
}

func (s *CategoryService) List(ctx context.Context) ([]transport.CategoryResponse, error) {
	uow := s.UoW.New()
	defer uow.Close()

	items, err := uow.Categories().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]transport.CategoryResponse, 0, len(items))
	for i := range items {
		out = append(out, toCategoryResponse(&items[i]))
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*transport.CategoryResponse, error) {
	uow := s.UoW.New()
	defer uow.Close()

	c, err := uow.Categories().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, newError(ErrNotFound, "Category with ID %d not found", id)
	}
	resp := toCategoryResponse(c)
	return &resp, nil
}

func (s *CategoryService) nameTaken(ctx context.Context, uow *repo.UnitOfWork, name string, exceptID uint) (bool, error) {
	scopes := []repo.Scope{repo.Where("name = ?", name)}
	if exceptID != 0 {
		scopes = append(scopes, repo.Where("id <> ?", exceptID))
	}
	n, err := uow.Categories().Count(ctx, scopes...)
	return n > 0, err
}

func (s *CategoryService) Create(ctx context.Context, req transport.CategoryRequest) (*transport.CategoryResponse, error) {
	l := logging.FromContext(ctx).With("svc", "category.create")

	if err := validateCategory(req); err != nil {
		return nil, err
	}

	uow := s.UoW.New()
	defer uow.Close()

	taken, err := s.nameTaken(ctx, uow, req.Name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, newError(ErrDuplicate, "Category with this name already exists")
	}

	now := time.Now().UTC()
	c := &models.Category{Name: req.Name, Description: req.Description, CreatedAt: now, UpdatedAt: now}
	uow.Categories().Add(c)
	if _, err := uow.Save(ctx); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, newError(ErrDuplicate, "Category with this name already exists")
		}
		l.Error("create_category_error", "status", 500, "error", err)
		return nil, err
	}

	resp := toCategoryResponse(c)
	publish(ctx, s.Events, mykafka.TopicCategoryEvents, c.ID, "category_created", resp)
	return &resp, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, req transport.CategoryRequest) (*transport.CategoryResponse, error) {
	l := logging.FromContext(ctx).With("svc", "category.update")

	if err := validateCategory(req); err != nil {
		return nil, err
	}

	uow := s.UoW.New()
	defer uow.Close()

	c, err := uow.Categories().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, newError(ErrNotFound, "Category with ID %d not found", id)
	}

	taken, err := s.nameTaken(ctx, uow, req.Name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, newError(ErrDuplicate, "Category with this name already exists")
	}

	c.Name = req.Name
	c.Description = req.Description
	c.UpdatedAt = time.Now().UTC()
	uow.Categories().Update(c)
	if _, err := uow.Save(ctx); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, newError(ErrDuplicate, "Category with this name already exists")
		}
		l.Error("update_category_error", "status", 500, "error", err)
		return nil, err
	}

	resp := toCategoryResponse(c)
	publish(ctx, s.Events, mykafka.TopicCategoryEvents, c.ID, "category_updated", resp)
	return &resp, nil
}

// Delete reports false when the category does not exist.
func (s *CategoryService) Delete(ctx context.Context, id uint) (bool, error) {
	l := logging.FromContext(ctx).With("svc", "category.delete")

	uow := s.UoW.New()
	defer uow.Close()

	c, err := uow.Categories().GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}

	inUse, err := uow.Products().Count(ctx, repo.Where("category_id = ?", id))
	if err != nil {
		return false, err
	}
	if inUse > 0 {
		return false, newError(ErrConflict, "Cannot delete category that contains products")
	}

	uow.Categories().Delete(c)
	if _, err := uow.Save(ctx); err != nil {
		if errors.Is(err, repo.ErrForeignKey) {
			return false, newError(ErrConflict, "Cannot delete category that contains products")
		}
		l.Error("delete_category_error", "status", 500, "error", err)
		return false, err
	}

	publish(ctx, s.Events, mykafka.TopicCategoryEvents, id, "category_deleted", map[string]uint{"id": id})
	return true, nil
}
