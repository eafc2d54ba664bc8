package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/inventory_api/internal/models"
)

type mutation func(tx *gorm.DB) (int64, error)

// UnitOfWork stages mutations from its repositories and writes them in one
// transaction on Save. It is request scoped and not safe for concurrent use.
type UnitOfWork struct {
	db      *gorm.DB
	tx      *gorm.DB
	pending []mutation

	users      *GormRepository[models.User]
	categories *GormRepository[models.Category]
	products   *GormRepository[models.Product]
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	u := &UnitOfWork{db: db}
	u.users = &GormRepository[models.User]{uow: u}
	u.categories = &GormRepository[models.Category]{uow: u}
	u.products = &GormRepository[models.Product]{uow: u}
	return u
}

func (u *UnitOfWork) Users() Repository[models.User] { return u.users }
func (u *UnitOfWork) Categories() Repository[models.Category] { return u.categories }
func (u *UnitOfWork) Products() Repository[models.Product] { return u.products }

func (u *UnitOfWork) session(ctx context.Context) *gorm.DB {
	if u.tx != nil {
		return u.tx.WithContext(ctx)
	}
	return u.db.WithContext(ctx)
}

func (u *UnitOfWork) stage(m mutation) {
	u.pending = append(u.pending, m)
}

// Save flushes staged mutations and returns the number of affected rows.
// The staged list is cleared whether or not the flush succeeds.
func (u *UnitOfWork) Save(ctx context.Context) (int64, error) {
	ops := u.pending
	u.pending = nil
	if len(ops) == 0 {
		return 0, nil
	}

	var affected int64
	apply := func(tx *gorm.DB) error {
		for _, op := range ops {
			n, err := op(tx)
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	}

	var err error
	if u.tx != nil {
		err = apply(u.tx.WithContext(ctx))
	} else {
		err = u.db.WithContext(ctx).Transaction(apply)
	}
	if err != nil {
		return 0, classify(err)
	}
	return affected, nil
}

func (u *UnitOfWork) BeginTransaction(ctx context.Context) error {
	if u.tx != nil {
		return ErrTransactionActive
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("%w: begin: %w", ErrPersistence, tx.Error)
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWork) CommitTransaction() error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	if err := tx.Commit().Error; err != nil {
		return classify(err)
	}
	return nil
}

func (u *UnitOfWork) RollbackTransaction() error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	if err := tx.Rollback().Error; err != nil {
		return fmt.Errorf("%w: rollback: %w", ErrPersistence, err)
	}
	return nil
}

// InTransaction runs fn inside an explicit transaction and commits when fn
// returns nil. Any error rolls the transaction back.
func (u *UnitOfWork) InTransaction(ctx context.Context, fn func() error) error {
	if err := u.BeginTransaction(ctx); err != nil {
		return err
	}
	if err := fn(); err != nil {
		_ = u.RollbackTransaction()
		return err
	}
	return u.CommitTransaction()
}

// Close drops staged mutations and rolls back an open transaction.
func (u *UnitOfWork) Close() error {
	u.pending = nil
	return u.RollbackTransaction()
}

func (u *UnitOfWork) Ping(ctx context.Context) error {
	sqlDB, err := u.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type Factory struct {
	DB *gorm.DB
}

func (f Factory) New() *UnitOfWork {
	return NewUnitOfWork(f.DB)
}
