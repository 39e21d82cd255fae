// Package table provides the tabular data model shared by the sync tool:
// ordered rows of typed cell values under a header row, with codecs for
// xlsx and csv files.
//
// The first column of every table is the row key, regardless of what its
// header says. Row keys identify matching rows between a source and a
// target table.
package table

// Table is an ordered sequence of rows under a header row.
//
// Columns holds the header in file order; Columns[0] is the key column.
// Every row is padded to len(Columns), so indexing is always safe.
type Table struct {
	Columns []string
	Rows    []Row
}

// Row is a single table row, aligned with Table.Columns.
type Row []Value

// Key returns the row's key: the canonical form of its first cell, so
// two files encoding the same numeric key differently still match.
func (r Row) Key() string {
	if len(r) == 0 {
		return ""
	}
	return r[0].key()
}

// KeyColumn returns the header text of the key column, or "" for a table
// with no columns.
func (t *Table) KeyColumn() string {
	if len(t.Columns) == 0 {
		return ""
	}
	return t.Columns[0]
}

// Dedupe builds a lookup from row key to column name to value,
// deduplicating rows on the key. When several rows share a key, the LAST
// occurrence in file order wins; earlier rows are overwritten wholesale.
func (t *Table) Dedupe() map[string]map[string]Value {
	byKey := make(map[string]map[string]Value, len(t.Rows))

	for _, row := range t.Rows {
		cells := make(map[string]Value, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				cells[col] = row[i]
			} else {
				cells[col] = Empty()
			}
		}
		byKey[row.Key()] = cells
	}

	return byKey
}

// pad extends row to width with empty cells so ragged input files do not
// cause index panics downstream.
func pad(row Row, width int) Row {
	for len(row) < width {
		row = append(row, Empty())
	}
	return row
}
