package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrUniqueViolation reports an insert or update rejected by a UNIQUE constraint.
var ErrUniqueViolation = errors.New("unique constraint violated")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// listWindow holds the normalised ORDER BY and LIMIT of a list query.
type listWindow struct {
	column string
	order  string
	size   int
	offset int
}

func newListWindow(page, size int, sortBy, sortOrder string, allowed map[string]string, fallbackSort, fallbackOrder string) listWindow {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed[fallbackSort]
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = fallbackOrder
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return listWindow{column: column, order: order, size: size, offset: (page - 1) * size}
}

func (w listWindow) String() string {
	return fmt.Sprintf(" ORDER BY %s %s LIMIT %d OFFSET %d", w.column, w.order, w.size, w.offset)
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// inTx runs fn inside a transaction, rolling back when fn fails.
func inTx(ctx context.Context, db *sqlx.DB, name string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s tx: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s tx: %w", name, err)
	}
	return nil
}

// mustAffect turns a statement that touched no rows into sql.ErrNoRows.
func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrUniqueViolation
	}
	return err
}
