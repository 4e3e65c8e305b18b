package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/stockflow-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/stockflow-backend/pkg/errors"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx rebinds the base to tx; a nil tx keeps the current connection.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// Translate maps storage failures onto typed errors: missing rows become
// not-found, unique violations conflicts, and the on-hand CHECK a stock
// constraint. Anything else is a dependency error. Typed errors pass through.
func Translate(err error, entity, action string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, entity+" already exists")
	case db.IsCheckViolation(err, "on_hand_quantity"):
		return pkgerrors.Wrap(pkgerrors.CodeStockConstraint, err, "stock on hand cannot go below zero")
	case db.IsCheckViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, entity+" violates a constraint")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
