// Package schema reads the canonical schema script a migrated database must
// conform to.
package schema

import (
	"os"
	"strings"

	"github.com/mesh-intelligence/dbswap/pkg/types"
)

// Batch is the full text of a schema script, executed as one unit.
type Batch struct {
	Path string
	SQL  string
}

// Empty reports whether the script holds nothing but whitespace.
func (b Batch) Empty() bool {
	return strings.TrimSpace(b.SQL) == ""
}

// ManagesTransaction reports whether the script opens or closes a
// transaction itself, as sqlite3 .dump output does. Only statements are
// inspected; keywords inside comments, quoted text, and trigger bodies do
// not count.
func (b Batch) ManagesTransaction() bool {
	for _, kw := range statementKeywords(b.SQL) {
		switch kw {
		case "BEGIN", "COMMIT", "ROLLBACK":
			return true
		}
	}
	return false
}

// statementKeywords returns the upper-cased first word of every statement
// in sql.
func statementKeywords(sql string) []string {
	var out []string
	atStart := true
	for i := 0; i < len(sql); {
		c := sql[i]
		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return out
			}
			i += end + 4
		case c == ';':
			atStart = true
			i++
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'' || c == '"' || c == '`' || c == '[':
			closer := c
			if c == '[' {
				closer = ']'
			}
			end := strings.IndexByte(sql[i+1:], closer)
			if end < 0 {
				return out
			}
			atStart = false
			i += end + 2
		default:
			j := i
			for j < len(sql) && isWordByte(sql[j]) {
				j++
			}
			if j == i {
				j++
			} else if atStart {
				out = append(out, strings.ToUpper(sql[i:j]))
			}
			atStart = false
			i = j
		}
	}
	return out
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// Load reads the schema script at path. The content is not parsed; syntax
// errors surface when the batch is executed. A missing or unreadable file
// returns an error of kind types.ErrIO.
func Load(path string) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, types.NewError(types.ErrIO, "load schema", path, err)
	}
	return Batch{Path: path, SQL: string(data)}, nil
}
