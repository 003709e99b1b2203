package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/dbswap/pkg/types"
)

// userTablesQuery lists ordinary tables in catalog order, skipping SQLite's
// internal sqlite_* tables.
const userTablesQuery = `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
ORDER BY rowid`

// ListUserTables returns the names of the user tables in db, in catalog
// order.
func ListUserTables(db Querier) ([]string, error) {
	rows, err := db.Query(userTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// DescribeColumns returns the columns of table in declaration order. A table
// that does not exist is an error.
func DescribeColumns(db Querier, table string) (types.TableDescriptor, error) {
	desc := types.TableDescriptor{Name: table}

	rows, err := db.Query("SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return desc, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return desc, fmt.Errorf("scan column of %s: %w", table, err)
		}
		desc.Columns = append(desc.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return desc, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(desc.Columns) == 0 {
		return desc, fmt.Errorf("describe %s: no such table", table)
	}
	return desc, nil
}
