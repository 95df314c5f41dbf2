package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// PostgreSQLのSQLSTATE
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// IsUniqueViolation はerrが一意制約違反かどうかを返す。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// IsUniqueViolationOn はerrが指定カラムの一意制約違反かどうかを返す。
// PostgreSQLは制約名（例: users_email_key）、SQLiteはエラーメッセージ
// （例: "UNIQUE constraint failed: users.email"）からカラムを判定する。
func IsUniqueViolationOn(err error, column string) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.Contains(pqErr.Constraint, "_"+column+"_")
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return strings.Contains(liteErr.Error(), "."+column)
	}
	return false
}

// IsForeignKeyViolation はerrが外部キー制約違反かどうかを返す。
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqForeignKeyViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
