// Package identdialect implements the Identifier Dialect (spec.md §4.2) for
// the SQL Server backend: bracket quoting of identifiers, the reserved-word
// set, and parameter-name minting.
package identdialect

import (
	"fmt"
	"strings"
)

// Quote wraps identifier in SQL Server's delimiter pair. Quoting is applied
// unconditionally, on every emitted identifier, regardless of whether the
// identifier collides with a reserved word (spec.md §4.2, §9 "Reserved-word
// set": "simpler than conditional quoting and equally correct"). A closing
// bracket embedded in the identifier is escaped by doubling, matching SQL
// Server's own `QUOTENAME` behavior.
func Quote(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return "[" + escaped + "]"
}

// QuoteQualified quotes a schema-qualified identifier (e.g. "dbo.Person"),
// quoting each dot-separated segment independently.
func QuoteQualified(identifier string) string {
	parts := strings.Split(identifier, ".")
	for i, p := range parts {
		parts[i] = Quote(p)
	}
	return strings.Join(parts, ".")
}

// IsReserved reports whether identifier (case-insensitive) is one of the
// SQL Server reserved keywords.
func IsReserved(identifier string) bool {
	_, ok := reservedWords[strings.ToUpper(identifier)]
	return ok
}

// ParamPrefix is the prefix minted parameter names carry (spec.md §3.5).
const ParamPrefix = "@p__linq__"

// MintParam returns the symbolic parameter name for the given sequence
// number, following the `@p__linq__<seq>` convention (spec.md §3.5, §6.2).
func MintParam(seq int) string {
	return fmt.Sprintf("%s%d", ParamPrefix, seq)
}

// reservedWords is the SQL Server reserved-word set (ISO reserved plus T-SQL
// additions), compiled into a constant hash-set (spec.md §4.2, §9).
var reservedWords = buildReservedSet([]string{
	"ADD", "ALL", "ALTER", "AND", "ANY", "AS", "ASC", "AUTHORIZATION",
	"BACKUP", "BEGIN", "BETWEEN", "BREAK", "BROWSE", "BULK", "BY",
	"CASCADE", "CASE", "CHECK", "CHECKPOINT", "CLOSE", "CLUSTERED",
	"COALESCE", "COLLATE", "COLUMN", "COMMIT", "COMPUTE", "CONSTRAINT",
	"CONTAINS", "CONTAINSTABLE", "CONTINUE", "CONVERT", "CREATE", "CROSS",
	"CURRENT", "CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP",
	"CURRENT_USER", "CURSOR", "DATABASE", "DBCC", "DEALLOCATE", "DECLARE",
	"DEFAULT", "DELETE", "DENY", "DESC", "DISK", "DISTINCT",
	"DISTRIBUTED", "DOUBLE", "DROP", "DUMP", "ELSE", "END", "ERRLVL",
	"ESCAPE", "EXCEPT", "EXEC", "EXECUTE", "EXISTS", "EXIT", "EXTERNAL",
	"FETCH", "FILE", "FILLFACTOR", "FOR", "FOREIGN", "FREETEXT",
	"FREETEXTTABLE", "FROM", "FULL", "FUNCTION", "GOTO", "GRANT",
	"GROUP", "HAVING", "HOLDLOCK", "IDENTITY", "IDENTITY_INSERT",
	"IDENTITYCOL", "IF", "IN", "INDEX", "INNER", "INSERT", "INTERSECT",
	"INTO", "IS", "JOIN", "KEY", "KILL", "LEFT", "LIKE", "LINENO",
	"LOAD", "MERGE", "NATIONAL", "NOCHECK", "NONCLUSTERED", "NOT",
	"NULL", "NULLIF", "OF", "OFF", "OFFSETS", "ON", "OPEN",
	"OPENDATASOURCE", "OPENQUERY", "OPENROWSET", "OPENXML", "OPTION",
	"OR", "ORDER", "OUTER", "OVER", "PERCENT", "PIVOT", "PLAN",
	"PRECISION", "PRIMARY", "PRINT", "PROC", "PROCEDURE", "PUBLIC",
	"RAISERROR", "READ", "READTEXT", "RECONFIGURE", "REFERENCES",
	"REPLICATION", "RESTORE", "RESTRICT", "RETURN", "REVERT", "REVOKE",
	"RIGHT", "ROLLBACK", "ROWCOUNT", "ROWGUIDCOL", "RULE", "SAVE",
	"SCHEMA", "SECURITYAUDIT", "SELECT", "SEMANTICKEYPHRASETABLE",
	"SEMANTICSIMILARITYDETAILSTABLE", "SEMANTICSIMILARITYTABLE",
	"SESSION_USER", "SET", "SETUSER", "SHUTDOWN", "SOME", "STATISTICS",
	"SYSTEM_USER", "TABLE", "TABLESAMPLE", "TEXTSIZE", "THEN", "TO",
	"TOP", "TRAN", "TRANSACTION", "TRIGGER", "TRUNCATE", "TRY_CONVERT",
	"TSEQUAL", "UNION", "UNIQUE", "UNPIVOT", "UPDATE", "UPDATETEXT",
	"USE", "USER", "VALUES", "VARYING", "VIEW", "WAITFOR", "WHEN",
	"WHERE", "WHILE", "WITH", "WITHIN GROUP", "WRITETEXT",
})

func buildReservedSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
