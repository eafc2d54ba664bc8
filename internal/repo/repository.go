package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Scope is a query predicate. Build it with Where so values stay bound parameters.
type Scope = func(*gorm.DB) *gorm.DB

func Where(query any, args ...any) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}
}

type Repository[T any] interface {
	GetByID(ctx context.Context, id uint) (*T, error)
	GetAll(ctx context.Context) ([]T, error)
	Find(ctx context.Context, scopes ...Scope) ([]T, error)
	SingleOrDefault(ctx context.Context, scopes ...Scope) (*T, error)
	Count(ctx context.Context, scopes ...Scope) (int64, error)

	Add(entity *T)
	Update(entity *T)
	// UpdateIf writes every column of entity only when its row still matches
	// scopes. A lost race shows up as zero affected rows from Save.
	UpdateIf(entity *T, scopes ...Scope)
	Delete(entity *T)
}

type GormRepository[T any] struct {
	uow *UnitOfWork
}

func (r *GormRepository[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	err := r.uow.session(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return &entity, nil
}

func (r *GormRepository[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.Find(ctx)
}

func (r *GormRepository[T]) Find(ctx context.Context, scopes ...Scope) ([]T, error) {
	items := make([]T, 0)
	if err := r.uow.session(ctx).Scopes(scopes...).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return items, nil
}

func (r *GormRepository[T]) SingleOrDefault(ctx context.Context, scopes ...Scope) (*T, error) {
	var items []T
	if err := r.uow.session(ctx).Scopes(scopes...).Limit(2).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return &items[0], nil
	default:
		return nil, ErrMultipleResults
	}
}

func (r *GormRepository[T]) Count(ctx context.Context, scopes ...Scope) (int64, error) {
	var n int64
	if err := r.uow.session(ctx).Model(new(T)).Scopes(scopes...).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return n, nil
}

func (r *GormRepository[T]) Add(entity *T) {
	r.uow.stage(func(tx *gorm.DB) (int64, error) {
		res := tx.Create(entity)
		return res.RowsAffected, res.Error
	})
}

func (r *GormRepository[T]) Update(entity *T) {
	r.uow.stage(func(tx *gorm.DB) (int64, error) {
		res := tx.Save(entity)
		return res.RowsAffected, res.Error
	})
}

func (r *GormRepository[T]) UpdateIf(entity *T, scopes ...Scope) {
	r.uow.stage(func(tx *gorm.DB) (int64, error) {
		res := tx.Model(entity).Scopes(scopes...).Select("*").Updates(entity)
		return res.RowsAffected, res.Error
	})
}

func (r *GormRepository[T]) Delete(entity *T) {
	r.uow.stage(func(tx *gorm.DB) (int64, error) {
		res := tx.Delete(entity)
		return res.RowsAffected, res.Error
	})
}
