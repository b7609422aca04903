package store

import (
	"context"
	"fmt"
	"reflect"
)

type (
	TableDef struct {
		Name       string
		Columns    []ColumnDef
		PrimaryKey []string
		Unique     []UniqueDef
	}

	UniqueDef struct {
		Name    string
		Columns []string
	}

	ColumnDef struct {
		Name     string
		Datatype string
	}

	// MissingUniqueIndex means the schema lost one of the natural keys the
	// service relies on (eg.: station name used for removal)
	MissingUniqueIndex struct {
		Table   string
		Columns []string
	}
)

var (
	naturalKeys = []struct {
		table   string
		columns []string
	}{
		{"users", []string{"username"}},
		{"users", []string{"email"}},
		{"stations", []string{"name"}},
	}
)

func (m MissingUniqueIndex) Error() string {
	return fmt.Sprintf("table %v must have a unique index on %v", m.Table, m.Columns)
}

func (c *Control) verifySchema(ctx context.Context) error {
	for _, nk := range naturalKeys {
		td, err := c.TableDef(ctx, nk.table)
		if err != nil {
			return err
		}
		if !td.HasUnique(nk.columns...) {
			return MissingUniqueIndex{Table: nk.table, Columns: nk.columns}
		}
	}
	return nil
}

// HasUnique checks if there is a unique index covering exactly the given columns
func (td *TableDef) HasUnique(columns ...string) bool {
	for _, u := range td.Unique {
		if reflect.DeepEqual(u.Columns, columns) {
			return true
		}
	}
	return false
}

func (c *Control) TableDef(ctx context.Context, name string) (*TableDef, error) {
	td := TableDef{
		Name: name,
	}

	type tableInfoRow struct {
		name     string
		datatype string
		pk       bool
	}
	rows, err := c.db.QueryContext(ctx, `select name, type, pk from pragma_table_info(?) order by name`, name)
	if err != nil {
		return nil, classify("table info", err)
	}
	defer rows.Close()
	for rows.Next() {
		var row tableInfoRow
		err = rows.Scan(&row.name, &row.datatype, &row.pk)
		if err != nil {
			return nil, classify("table info", err)
		}
		td.Columns = append(td.Columns, ColumnDef{Name: row.name, Datatype: row.datatype})
		if row.pk {
			td.PrimaryKey = append(td.PrimaryKey, row.name)
		}
	}
	if len(td.Columns) == 0 {
		return nil, NotFound{Entity: "table", Key: name}
	}
	uniqueIdx, err := c.uniqueIndexes(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, v := range uniqueIdx {
		udef, err := c.uniqueDef(ctx, v)
		if err != nil {
			return nil, err
		}
		td.Unique = append(td.Unique, udef)
	}
	return &td, nil
}

func (c *Control) uniqueDef(ctx context.Context, name string) (UniqueDef, error) {
	rows, err := c.db.QueryContext(ctx, `select name from pragma_index_info(?) order by seqno`, name)
	if err != nil {
		return UniqueDef{}, classify("index info", err)
	}
	defer rows.Close()
	ud := UniqueDef{
		Name: name,
	}
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return UniqueDef{}, classify("index info", err)
		}
		ud.Columns = append(ud.Columns, name)
	}
	return ud, nil
}

func (c *Control) uniqueIndexes(ctx context.Context, table string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `select name from pragma_index_list(?) where [unique] = 1 order by name`, table)
	if err != nil {
		return nil, classify("index list", err)
	}
	defer rows.Close()
	var ret []string
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return nil, classify("index list", err)
		}
		ret = append(ret, name)
	}
	return ret, nil
}
