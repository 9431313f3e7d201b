package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/artesarh/rpb/reporting/schema"
	"github.com/artesarh/rpb/reporting/validation"
	"github.com/artesarh/rpb/utils"
	"gorm.io/gorm"
)

// Store is the write side for every reporting entity. Each mutating method
// validates its input and runs as one transaction, so a rejected write leaves
// the database untouched.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var ErrInUse = errors.New("entity is referenced by other records")

func codeLookupError(err error) error {
	if schema.IsNotFound(err) {
		return utils.CodedError(err, http.StatusNotFound)
	}
	return utils.CodedError(err, http.StatusInternalServerError)
}

func codeValidationError(err error) error {
	if err == nil {
		return nil
	}
	return utils.CodedError(err, http.StatusBadRequest)
}

func dbError(action string, err error, args ...interface{}) error {
	slog.Error("sql error "+action, append(args, "error", err)...)
	return utils.CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
}

func checkExist(txn *gorm.DB, table string, ids []uint, notFound error) error {
	missing, err := schema.MissingIds(table, ids, txn)
	if err != nil {
		return utils.CodedError(err, http.StatusInternalServerError)
	}
	if len(missing) > 0 {
		return utils.CodedError(fmt.Errorf("%w: %v", notFound, missing), http.StatusNotFound)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

func orDefault[T any](p *T, v T) *T {
	if p == nil {
		return &v
	}
	return p
}

// request shape first, then the domain rules
func validate(in interface{}, rules ...error) error {
	return codeValidationError(validation.Join(append([]error{validation.Struct(in)}, rules...)...))
}

// decodePatch overlays a partial JSON body onto in, fields missing from the
// body keep their current value. Callers run it inside the transaction that
// loaded the current value.
func decodePatch(patch []byte, in interface{}) error {
	if err := json.Unmarshal(patch, in); err != nil {
		return utils.CodedError(fmt.Errorf("error parsing request body: %w", err), http.StatusBadRequest)
	}
	return nil
}
