package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations
var migrations embed.FS

var dialects = map[string]goose.Dialect{
	DriverPostgres: goose.DialectPostgres,
	DriverMySQL:    goose.DialectMySQL,
	DriverSQLite:   goose.DialectSQLite3,
}

// Migrate applies the embedded migrations for driver through a goose provider
// owned by this call.
func Migrate(ctx context.Context, gdb *gorm.DB, driver string) error {
	if driver == "" {
		driver = DriverPostgres
	}
	dialect, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("no migrations for driver %q", driver)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}

	fsys, err := fs.Sub(migrations, "migrations/"+driver)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
