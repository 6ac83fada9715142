// Package datarecording stores run records in SQLite databases so that a
// session can be analyzed after the fact.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DefaultBatchSize is the number of buffered entries that triggers a flush.
const DefaultBatchSize = 100000

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table with given filename
	CreateTable(tableName string, sampleEntry any)

	// InsertData writes a same-type entry into a table that already exists
	InsertData(tableName string, entry any)

	// ListTables returns a slice containing names of all tables
	ListTables() []string

	// Flush flushes all the buffered entries into database
	Flush()

	// Close records the end of the execution, flushes and closes the
	// database.
	Close() error
}

// New creates a DataRecorder that writes to path.sqlite3. An empty path
// picks a unique name. The execution information is recorded in the
// exec_info table, and the recorder is closed when the program exits
// through atexit.
func New(path string) DataRecorder {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: DefaultBatchSize,
		tables:    make(map[string]*table),
	}

	w.Init()
	w.startExec()

	atexit.Register(func() { _ = w.Close() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int

	exec      *execRecorder
	closeOnce sync.Once
	closeErr  error
}

// Init establishes a connection to the database.
func (t *sqliteWriter) Init() {
	if t.dbName == "" {
		t.dbName = "csat_recording_" + xid.New().String()
	}

	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	t.DB = db
}

func (t *sqliteWriter) startExec() {
	t.exec = newExecRecorder(t)
	t.exec.Start()
}

func (t *sqliteWriter) isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func (t *sqliteWriter) checkStructFields(entry any) error {
	types := reflect.TypeOf(entry)
	if types.Kind() != reflect.Struct {
		return errors.New("entry is not a struct")
	}

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		if !field.IsExported() || !t.isAllowedType(field.Type.Kind()) {
			return fmt.Errorf("entry field %s is invalid", field.Name)
		}
	}

	return nil
}

func fieldNames(entry any) []string {
	types := reflect.TypeOf(entry)
	names := make([]string, types.NumField())

	for i := range names {
		names[i] = types.Field(i).Name
	}

	return names
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	err := t.checkStructFields(sampleEntry)
	if err != nil {
		panic(err)
	}

	fields := strings.Join(fieldNames(sampleEntry), ", \n\t")

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	t.mustExecute(createTableSQL)

	t.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
}

func (t *sqliteWriter) InsertData(tableName string, entry any) {
	table, exists := t.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		panic(fmt.Sprintf("entry of type %T does not fit table %s", entry, tableName))
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		t.Flush()
	}
}

func (t *sqliteWriter) ListTables() []string {
	tables := make([]string, 0, len(t.tables))
	for table := range t.tables {
		tables = append(tables, table)
	}

	return tables
}

func (t *sqliteWriter) Flush() {
	if t.entryCount == 0 {
		return
	}

	t.mustExecute("BEGIN TRANSACTION")
	defer t.mustExecute("COMMIT TRANSACTION")

	for tableName, table := range t.tables {
		if len(table.entries) == 0 {
			continue
		}

		stmt := t.prepareStatement(tableName, table.entries[0])

		for _, entry := range table.entries {
			v := []any{}

			values := reflect.ValueOf(entry)
			for i := 0; i < values.NumField(); i++ {
				v = append(v, values.Field(i).Interface())
			}

			_, err := stmt.Exec(v...)
			if err != nil {
				panic(err)
			}
		}

		table.entries = nil

		stmt.Close()
	}

	t.entryCount = 0
}

func (t *sqliteWriter) Close() error {
	t.closeOnce.Do(func() {
		if t.exec != nil {
			t.exec.End()
		}

		t.Flush()
		t.closeErr = t.DB.Close()
	})

	return t.closeErr
}

func (t *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func (t *sqliteWriter) prepareStatement(table string, entry any) *sql.Stmt {
	n := fieldNames(entry)
	for i := range n {
		n[i] = "?"
	}

	sqlStr := "INSERT INTO " + table + " VALUES (" + strings.Join(n, ", ") + ")"

	stmt, err := t.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}

	return stmt
}
