// Package dataset provides the column-oriented table shared by validation and persistence.
package dataset

import "fmt"

// Kind is the logical type of a column.
type Kind int

// Column kinds. Values held in a row must match their column's kind or be nil.
const (
	KindString    Kind = iota // string
	KindText                  // string, unbounded
	KindInt64                 // int64
	KindTimestamp             // time.Time
	KindDate                  // string, YYYY-MM-DD
	KindTime                  // string, HH:MM:SS
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindInt64:
		return "int64"
	case KindTimestamp:
		return "timestamp"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column describes one named column.
type Column struct {
	Name string
	Kind Kind
	// MaxLength truncates string values to this many runes at persistence time;
	// 0 means unbounded. Key columns must leave it unset.
	MaxLength int
}

// Table is a named set of columns and rows. A nil cell is a null value.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// New creates an empty table with the given columns.
func New(name string, columns ...Column) *Table {
	return &Table{Name: name, Columns: columns}
}

// Append adds a row. The row must have one value per column.
func (t *Table) Append(row ...any) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("table %s: row has %d values, want %d", t.Name, len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the index of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Values returns a copy of the named column's values.
func (t *Table) Values(name string) ([]any, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	values := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, true
}
