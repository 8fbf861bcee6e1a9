package sql

// reservedWords is the union of common reserved words across the supported
// backends. Identifiers matching an entry are always quoted; everything
// else is quoted only when it contains special characters.
var reservedWords = map[string]bool{
	"ALL": true, "ALTER": true, "AND": true, "ANY": true, "AS": true,
	"ASC": true, "BETWEEN": true, "BY": true, "CASE": true, "CHECK": true,
	"COLUMN": true, "CONSTRAINT": true, "CREATE": true, "CROSS": true,
	"CURRENT_DATE": true, "CURRENT_TIME": true, "CURRENT_TIMESTAMP": true,
	"DEFAULT": true, "DELETE": true, "DESC": true, "DISTINCT": true,
	"DROP": true, "ELSE": true, "END": true, "EXCEPT": true, "EXISTS": true,
	"FETCH": true, "FOR": true, "FOREIGN": true, "FROM": true, "FULL": true,
	"GROUP": true, "HAVING": true, "IN": true, "INDEX": true, "INNER": true,
	"INSERT": true, "INTERSECT": true, "INTO": true, "IS": true,
	"JOIN": true, "KEY": true, "LEFT": true, "LIKE": true, "LIMIT": true,
	"MINUS": true, "NOT": true, "NULL": true, "OFFSET": true, "ON": true,
	"OR": true, "ORDER": true, "OUTER": true, "PRIMARY": true,
	"RECURSIVE": true, "REFERENCES": true, "RIGHT": true, "ROW": true,
	"ROWNUM": true, "ROWS": true, "SELECT": true, "SET": true,
	"TABLE": true, "THEN": true, "TO": true, "UNION": true, "UNIQUE": true,
	"UPDATE": true, "USER": true, "VALUES": true, "WHEN": true,
	"WHERE": true, "WITH": true,
}
