package entity

import (
	"fmt"
	"strings"
)

// Statements bind every value through a named placeholder. Table and column
// names come from type declarations and are written into the text as is.

func selectQuery(td TableDef) string {
	columns := append([]string{td.KeyField}, td.ColumnNames()...)
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = :%s", strings.Join(columns, ","), td.Name, td.KeyField, td.KeyField)
}

func insertQuery(td TableDef) string {
	cols := td.insertColumns()
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", td.Name)
	}

	names := sliceMap(cols, func(val ColumnInfo) string {
		return val.Name
	})

	placeholders := sliceMap(cols, func(val ColumnInfo) string {
		return ":" + val.Name
	})

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", td.Name, strings.Join(names, ","), strings.Join(placeholders, ","))
}

func updateQuery(td TableDef, cols []ColumnInfo) string {
	sets := sliceMap(cols, func(val ColumnInfo) string {
		return fmt.Sprintf("%s = :%s", val.Name, val.Name)
	})

	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s", td.Name, strings.Join(sets, ", "), td.KeyField, td.KeyField)
}

func deleteQuery(td TableDef) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = :%s", td.Name, td.KeyField, td.KeyField)
}
