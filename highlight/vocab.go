package highlight

import "github.com/tabq-dev/tabq/core"

// vocabularies are keyed by upper-cased word. The shared core covers
// portable SQL; backend-specific words are gated by kind.

var sqlKeywords = wordSet(
	"SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "IN", "IS", "NULL", "LIKE",
	"BETWEEN", "EXISTS", "CASE", "WHEN", "THEN", "ELSE", "END", "AS", "ON",
	"JOIN", "LEFT", "RIGHT", "INNER", "OUTER", "FULL", "CROSS", "NATURAL",
	"ORDER", "BY", "ASC", "DESC", "GROUP", "HAVING", "LIMIT", "OFFSET",
	"UNION", "ALL", "INTERSECT", "EXCEPT", "DISTINCT", "INTO", "VALUES",
	"INSERT", "UPDATE", "DELETE", "SET", "CREATE", "TABLE", "INDEX", "VIEW",
	"DROP", "ALTER", "ADD", "COLUMN", "PRIMARY", "KEY", "FOREIGN", "REFERENCES",
	"UNIQUE", "CHECK", "DEFAULT", "CONSTRAINT", "CASCADE", "RESTRICT",
	"EXPLAIN", "ANALYZE", "BEGIN", "COMMIT", "ROLLBACK", "TRANSACTION",
	"SAVEPOINT", "RELEASE", "IF", "REPLACE", "CONFLICT", "COLLATE",
	"MATCH", "ESCAPE", "RENAME", "TO", "TEMP", "TEMPORARY", "TRIGGER",
	"AFTER", "BEFORE", "INSTEAD", "OF", "FOR", "EACH", "ROW", "RECURSIVE",
	"WITH", "TRUE", "FALSE", "CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP",
)

var sqliteKeywords = wordSet(
	"PRAGMA", "VACUUM", "ATTACH", "DETACH", "GLOB", "REGEXP", "INDEXED",
	"REINDEX", "ABORT", "FAIL", "IGNORE", "AUTOINCREMENT", "ROWID", "WITHOUT",
)

var postgresKeywords = wordSet(
	"ILIKE", "RETURNING", "LATERAL", "CONCURRENTLY", "TABLESPACE", "SIMILAR",
	"ANALYSE", "VERBOSE", "USING",
)

var sqlFunctions = wordSet(
	"COUNT", "SUM", "AVG", "MIN", "MAX", "ABS", "COALESCE", "NULLIF",
	"LENGTH", "LOWER", "UPPER", "LTRIM", "RTRIM", "TRIM", "SUBSTR",
	"SUBSTRING", "CAST", "ROUND", "GROUP_CONCAT",
)

var sqliteFunctions = wordSet(
	"IFNULL", "IIF", "INSTR", "PRINTF", "TYPEOF", "UNICODE", "ZEROBLOB",
	"JULIANDAY", "STRFTIME", "RANDOM", "RANDOMBLOB", "HEX", "UNHEX",
	"QUOTE", "TOTAL", "LIKELY", "UNLIKELY", "JSON", "JSON_ARRAY",
	"JSON_OBJECT", "JSON_EXTRACT", "JSON_TYPE", "JSON_VALID",
	"DATE", "TIME", "DATETIME",
)

var postgresFunctions = wordSet(
	"NOW", "AGE", "EXTRACT", "DATE_TRUNC", "TO_CHAR", "TO_DATE",
	"ARRAY_AGG", "STRING_AGG", "GENERATE_SERIES", "JSONB_BUILD_OBJECT",
	"REGEXP_REPLACE", "CONCAT",
)

var sqlTypes = wordSet(
	"INTEGER", "INT", "SMALLINT", "BIGINT", "TEXT", "BLOB", "REAL",
	"DOUBLE", "FLOAT", "NUMERIC", "DECIMAL", "BOOLEAN", "DATE", "DATETIME",
	"VARCHAR", "CHAR",
)

var sqliteTypes = wordSet(
	"TINYINT", "MEDIUMINT", "UNSIGNED", "INT2", "INT8", "CLOB",
	"NCHAR", "NVARCHAR",
)

var postgresTypes = wordSet(
	"SERIAL", "BIGSERIAL", "UUID", "JSONB", "BYTEA", "TIMESTAMP",
	"TIMESTAMPTZ", "INTERVAL", "INET", "CIDR",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func classify(upper string, kind core.Kind) TokenClass {
	if _, ok := sqlKeywords[upper]; ok {
		return ClassKeyword
	}
	if _, ok := sqlFunctions[upper]; ok {
		return ClassFunction
	}
	if _, ok := sqlTypes[upper]; ok {
		return ClassType
	}

	switch kind {
	case core.KindSqlite:
		if _, ok := sqliteKeywords[upper]; ok {
			return ClassKeyword
		}
		if _, ok := sqliteFunctions[upper]; ok {
			return ClassFunction
		}
		if _, ok := sqliteTypes[upper]; ok {
			return ClassType
		}
	case core.KindPostgres:
		if _, ok := postgresKeywords[upper]; ok {
			return ClassKeyword
		}
		if _, ok := postgresFunctions[upper]; ok {
			return ClassFunction
		}
		if _, ok := postgresTypes[upper]; ok {
			return ClassType
		}
	}

	return ClassIdent
}
