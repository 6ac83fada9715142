package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"
)

// DataReader reads back a recording written by a DataRecorder and a set of
// TransferRecorders.
type DataReader interface {
	// ExecInfo returns the exec_info rows in the order they were written.
	ExecInfo(ctx context.Context) ([]ExecInfo, error)

	// Transfers returns the transfers selected by filter, ordered by time.
	Transfers(ctx context.Context, filter TransferFilter) ([]TransferEntry, error)

	// CountTransfers returns how many transfers filter selects, ignoring
	// its Limit and Offset.
	CountTransfers(ctx context.Context, filter TransferFilter) (int, error)

	// Flows aggregates the transfers per node, kind and port.
	Flows(ctx context.Context) ([]Flow, error)

	Close() error
}

// TransferFilter selects rows of the transfer table. The zero value selects
// every row.
type TransferFilter struct {
	Node  string
	Ports []uint16

	// UnroutableOnly keeps the transfers no task received.
	UnroutableOnly bool

	// From and To bound Time, both inclusive. A To of zero leaves the
	// window open.
	From, To int64

	Limit, Offset int
}

// Flow is the traffic one node received on one port.
type Flow struct {
	Node       string
	Kind       string
	Port       uint16
	Routed     int
	Unroutable int
	Bytes      int
}

type sqliteReader struct {
	db *sql.DB
}

// NewReader opens the recording in filename, which must exist.
func NewReader(filename string) (DataReader, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	return &sqliteReader{db: db}, nil
}

func (r *sqliteReader) ExecInfo(ctx context.Context) ([]ExecInfo, error) {
	return selectRows[ExecInfo](ctx, r.db,
		"SELECT "+columns(ExecInfo{})+" FROM "+ExecInfoTable+" ORDER BY rowid")
}

func (r *sqliteReader) Transfers(
	ctx context.Context,
	filter TransferFilter,
) ([]TransferEntry, error) {
	where, args := filter.where()

	query := "SELECT " + columns(TransferEntry{}) + " FROM " + TransferTable +
		where + " ORDER BY Time, rowid"

	switch {
	case filter.Limit > 0:
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	case filter.Offset > 0:
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	return selectRows[TransferEntry](ctx, r.db, query, args...)
}

func (r *sqliteReader) CountTransfers(
	ctx context.Context,
	filter TransferFilter,
) (int, error) {
	where, args := filter.where()

	var n int

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+TransferTable+where, args...).Scan(&n)

	return n, err
}

func (r *sqliteReader) Flows(ctx context.Context) ([]Flow, error) {
	return selectRows[Flow](ctx, r.db, `SELECT Node, Kind, Port,
	SUM(Routed), COUNT(*) - SUM(Routed), SUM(Size)
FROM `+TransferTable+`
GROUP BY Node, Kind, Port
ORDER BY Node, Kind, Port`)
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

func (f TransferFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.Node != "" {
		conds = append(conds, "Node = ?")
		args = append(args, f.Node)
	}

	if len(f.Ports) > 0 {
		conds = append(conds, "Port IN (?"+strings.Repeat(", ?", len(f.Ports)-1)+")")
		for _, p := range f.Ports {
			args = append(args, p)
		}
	}

	if f.UnroutableOnly {
		conds = append(conds, "NOT Routed")
	}

	if f.From > 0 {
		conds = append(conds, "Time >= ?")
		args = append(args, f.From)
	}

	if f.To > 0 {
		conds = append(conds, "Time <= ?")
		args = append(args, f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// selectRows scans every row of the query into a T. The query must select
// one column per field of T, in field order.
func selectRows[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T

	for rows.Next() {
		var v T
		if err := rows.Scan(fieldPointers(&v)...); err != nil {
			return nil, err
		}

		out = append(out, v)
	}

	return out, rows.Err()
}

func fieldPointers(ptr any) []any {
	v := reflect.ValueOf(ptr).Elem()
	ptrs := make([]any, v.NumField())

	for i := range ptrs {
		ptrs[i] = v.Field(i).Addr().Interface()
	}

	return ptrs
}

func columns(sample any) string {
	return strings.Join(fieldNames(sample), ", ")
}
