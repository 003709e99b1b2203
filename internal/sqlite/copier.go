package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/dbswap/pkg/types"
)

// CopyAll copies every user table of src into dst and commits once at the
// end. Row and table failures are recorded in the report and never stop the
// copy; the returned error is non-nil only when the destination transaction
// cannot be opened or committed (kind types.ErrCommit).
func CopyAll(src, dst *sql.DB, log zerolog.Logger) (types.CopyReport, error) {
	var report types.CopyReport

	tables, err := ListUserTables(src)
	if err != nil {
		return report, types.NewError(types.ErrIO, "list source tables", "", err)
	}

	// Rows arrive in catalog order, not dependency order.
	if _, err := dst.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return report, types.NewError(types.ErrUnexpected, "disable foreign keys", "", err)
	}

	tx, err := dst.Begin()
	if err != nil {
		return report, types.NewError(types.ErrCommit, "begin copy transaction", "", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		report.Tables = append(report.Tables, CopyTable(src, tx, table, log))
	}

	if err := tx.Commit(); err != nil {
		return report, types.NewError(types.ErrCommit, "commit copy transaction", "", err)
	}
	log.Info().
		Int("tables", len(report.Tables)).
		Int("rows", report.Succeeded()).
		Int("skipped", report.FailedRows()).
		Msg("data copy committed")
	return report, nil
}

// CopyTable copies the rows of table from src into dst, naming the source
// columns in the insert so the destination matches them by name. A row that
// fails to insert is recorded and the next row is attempted. A table that
// cannot be described or read is recorded in the report's Err.
func CopyTable(src Querier, dst Preparer, table string, log zerolog.Logger) types.TableReport {
	report := types.TableReport{Table: table}
	log = log.With().Str("table", table).Logger()
	log.Info().Msg("copying table")

	desc, err := DescribeColumns(src, table)
	if err != nil {
		return failTable(report, err, log)
	}
	report.Columns = desc.Columns

	// Unary + strips the declared column type so drivers return the stored
	// value as is instead of converting DATE/TIMESTAMP text to time.Time.
	selectCols := make([]string, len(desc.Columns))
	insertCols := make([]string, len(desc.Columns))
	placeholders := make([]string, len(desc.Columns))
	for i, c := range desc.Columns {
		selectCols[i] = "+" + quoteIdent(c)
		insertCols[i] = quoteIdent(c)
		placeholders[i] = "?"
	}

	rows, err := src.Query(fmt.Sprintf("SELECT %s FROM %s", joinColumns(selectCols), quoteIdent(table)))
	if err != nil {
		return failTable(report, fmt.Errorf("read %s: %w", table, err), log)
	}
	defer rows.Close()

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table),
		joinColumns(insertCols),
		joinColumns(placeholders),
	)
	// A destination without this table or one of these columns fails every
	// row with the same error.
	stmt, prepErr := dst.Prepare(insertSQL)
	if stmt != nil {
		defer stmt.Close()
	}

	for i := 0; rows.Next(); i++ {
		row := make([]any, len(desc.Columns))
		ptrs := make([]any, len(row))
		for j := range row {
			ptrs[j] = &row[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return failTable(report, fmt.Errorf("scan %s row %d: %w", table, i, err), log)
		}

		err := prepErr
		if err == nil {
			_, err = stmt.Exec(row...)
		}
		if err != nil {
			err = types.NewError(types.ErrRowCopy, "insert into "+table, "", err)
			log.Warn().Err(err).Int("row", i).Str("values", formatRow(row)).Msg("row skipped")
		}
		report.RecordRow(i, row, err)
	}
	if err := rows.Err(); err != nil {
		return failTable(report, fmt.Errorf("read %s: %w", table, err), log)
	}

	log.Info().
		Int("attempted", report.Attempted).
		Int("copied", report.Succeeded).
		Int("skipped", len(report.Failed)).
		Msg("table copied")
	return report
}

func failTable(report types.TableReport, err error, log zerolog.Logger) types.TableReport {
	report.Fail(types.NewError(types.ErrTableCopy, "copy "+report.Table, "", err))
	log.Error().Err(report.Err).Int("copied", report.Succeeded).Msg("table skipped")
	return report
}

// formatRow renders row values for log output.
func formatRow(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case nil:
			parts[i] = "NULL"
		case string:
			parts[i] = fmt.Sprintf("%q", x)
		case []byte:
			parts[i] = fmt.Sprintf("x'%X'", x)
		default:
			parts[i] = fmt.Sprint(x)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
