package repository

import "database/sql"

// nullIntValue はsql.NullInt64を*intに変換する。NULLの場合はnil。
func nullIntValue(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// nullFloatValue はsql.NullFloat64を*float64に変換する。NULLの場合はnil。
func nullFloatValue(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// nullStringValue はsql.NullStringを*stringに変換する。NULLの場合はnil。
func nullStringValue(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
