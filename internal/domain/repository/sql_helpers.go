package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// ErrStaleWrite means a conditional update matched no row: the record changed
// status (or disappeared) between the read and the write.
var ErrStaleWrite = errors.New("record changed since it was read")

// textArray scans a Postgres text[] column through database/sql.
// pgtype.Map is not safe for concurrent use, so each scan gets its own.
func textArray(dst *[]string) sql.Scanner {
	return pgtype.NewMap().SQLScanner(dst)
}

// queryBuilder accumulates WHERE conditions with numbered placeholders.
type queryBuilder struct {
	conditions []string
	args       []interface{}
}

// arg registers v and returns its placeholder.
func (b *queryBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(cond string) {
	b.conditions = append(b.conditions, cond)
}

func (b *queryBuilder) clause() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

func (b *queryBuilder) page(limit, offset int) string {
	var sb strings.Builder
	if limit > 0 {
		sb.WriteString(" LIMIT " + b.arg(limit))
	}
	if offset > 0 {
		sb.WriteString(" OFFSET " + b.arg(offset))
	}
	return sb.String()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func stringsOrEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
