package dao

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Event{},
		&EventManager{},
		&Participation{},
		&Poll{},
		&Option{},
		&Vote{},
	)
	if err != nil {
		return err
	}

	// Emails are compared with lower(); uniqueness must follow the same rule.
	return db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS " + userEmailLowerIndex + " ON users (lower(email))").Error
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}

	return constraint == "" || pgErr.ConstraintName == constraint
}
