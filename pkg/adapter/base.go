package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/spcai/labcms/pkg/core"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect captures the SQL differences between drivers.
type Dialect struct {
	Name string
	// Placeholder formats the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// EncodeList converts a JSON-encoded list into a driver argument.
	// Nil passes the JSON text through as a string.
	EncodeList func(encoded []byte) any
}

// QuestionPlaceholder formats ? placeholders (SQLite).
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder formats $n placeholders (PostgreSQL).
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// BaseSQLStore implements core.RowStore over database/sql.
// Embed this struct in concrete drivers to get Select, Insert, Update
// and Delete.
type BaseSQLStore struct {
	Conn    *sql.DB
	Cfg     core.AdapterConfig
	Dialect Dialect
	Logger  *slog.Logger
}

// DB returns the underlying connection.
func (b *BaseSQLStore) DB() *sql.DB {
	return b.Conn
}

// Close closes the database connection.
func (b *BaseSQLStore) Close() error {
	if b.Conn != nil {
		b.logger().Debug("closing database connection")
		return b.Conn.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLStore) IsConnected() bool {
	return b.Conn != nil
}

func (b *BaseSQLStore) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

func (b *BaseSQLStore) placeholder(n int) string {
	if b.Dialect.Placeholder == nil {
		return QuestionPlaceholder(n)
	}
	return b.Dialect.Placeholder(n)
}

// QuoteIdent validates name and returns it double-quoted.
func QuoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidIdentifier, name)
	}
	return `"` + name + `"`, nil
}

// Select returns every row of table matching all filters, ordered by id.
func (b *BaseSQLStore) Select(ctx context.Context, table string, filters ...core.Filter) ([]core.Record, error) {
	if b.Conn == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	qt, err := QuoteIdent(table)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(qt)
	args := make([]any, 0, len(filters))
	for i, f := range filters {
		qc, err := QuoteIdent(f.Column)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(qc + " = " + b.placeholder(i+1))
		args = append(args, b.encodeArg(f.Value))
	}
	sb.WriteString(` ORDER BY "id"`)

	rows, err := b.Conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	records, err := ScanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return records, nil
}

// Insert stores rec, generating a time-ordered id when it has none, and
// returns the stored row.
func (b *BaseSQLStore) Insert(ctx context.Context, table string, rec core.Record) (core.Record, error) {
	if b.Conn == nil {
		return core.Record{}, fmt.Errorf("database connection not established")
	}
	qt, err := QuoteIdent(table)
	if err != nil {
		return core.Record{}, err
	}

	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return core.Record{}, fmt.Errorf("failed to generate id: %w", err)
		}
		rec.ID = id.String()
	}

	cols := []string{`"id"`}
	marks := []string{b.placeholder(1)}
	args := []any{rec.ID}
	for _, f := range rec.Fields {
		qc, err := QuoteIdent(f.Name)
		if err != nil {
			return core.Record{}, err
		}
		cols = append(cols, qc)
		marks = append(marks, b.placeholder(len(args)+1))
		args = append(args, b.encodeArg(f.Value))
	}

	//nolint:gosec // identifiers are validated by QuoteIdent
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qt, strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := b.Conn.ExecContext(ctx, query, args...); err != nil {
		return core.Record{}, fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	stored, err := b.Select(ctx, table, core.ByID(rec.ID))
	if err != nil {
		return core.Record{}, err
	}
	if len(stored) == 0 {
		return core.Record{}, fmt.Errorf("inserted row %s: %w", rec.ID, core.ErrNotFound)
	}
	b.logger().Debug("inserted row", slog.String("table", table), slog.String("id", rec.ID))
	return stored[0], nil
}

// Update writes the fields of partial into the rows matching filter.
// Matching no rows is not an error.
func (b *BaseSQLStore) Update(ctx context.Context, table string, partial core.Record, filter core.Filter) error {
	if b.Conn == nil {
		return fmt.Errorf("database connection not established")
	}
	if len(partial.Fields) == 0 {
		return fmt.Errorf("update of %s has no fields", table)
	}
	qt, err := QuoteIdent(table)
	if err != nil {
		return err
	}
	qf, err := QuoteIdent(filter.Column)
	if err != nil {
		return err
	}

	sets := make([]string, 0, len(partial.Fields))
	args := make([]any, 0, len(partial.Fields)+1)
	for _, f := range partial.Fields {
		qc, err := QuoteIdent(f.Name)
		if err != nil {
			return err
		}
		args = append(args, b.encodeArg(f.Value))
		sets = append(sets, qc+" = "+b.placeholder(len(args)))
	}
	args = append(args, b.encodeArg(filter.Value))

	//nolint:gosec // identifiers are validated by QuoteIdent
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", qt, strings.Join(sets, ", "), qf, b.placeholder(len(args)))
	res, err := b.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		b.logger().Debug("updated rows", slog.String("table", table), slog.Int64("rows", n))
	}
	return nil
}

// Delete removes the rows matching filter.
func (b *BaseSQLStore) Delete(ctx context.Context, table string, filter core.Filter) error {
	if b.Conn == nil {
		return fmt.Errorf("database connection not established")
	}
	qt, err := QuoteIdent(table)
	if err != nil {
		return err
	}
	qf, err := QuoteIdent(filter.Column)
	if err != nil {
		return err
	}

	//nolint:gosec // identifiers are validated by QuoteIdent
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", qt, qf, b.placeholder(1))
	if _, err := b.Conn.ExecContext(ctx, query, b.encodeArg(filter.Value)); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// ScanRecords reads every row into records. The column's declared type
// decides the value kind: BOOL types become booleans, JSON types become
// string lists and everything else is text.
func ScanRecords(rows *sql.Rows) ([]core.Record, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	var records []core.Record
	for rows.Next() {
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		var rec core.Record
		for i, ct := range types {
			v, err := decodeValue(ct.DatabaseTypeName(), values[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", ct.Name(), err)
			}
			rec.Set(ct.Name(), v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// encodeArg converts a value into a driver argument. Lists are stored as
// JSON arrays.
func (b *BaseSQLStore) encodeArg(v core.Value) any {
	switch v.Kind() {
	case core.KindString:
		return v.AsString()
	case core.KindBool:
		return v.AsBool()
	case core.KindList:
		encoded, _ := json.Marshal(v.AsList())
		if b.Dialect.EncodeList != nil {
			return b.Dialect.EncodeList(encoded)
		}
		return string(encoded)
	default:
		return nil
	}
}

func decodeValue(typeName string, raw any) (core.Value, error) {
	if raw == nil {
		return core.Null(), nil
	}
	typeName = strings.ToUpper(typeName)

	switch {
	case strings.Contains(typeName, "BOOL"):
		switch v := raw.(type) {
		case bool:
			return core.Bool(v), nil
		case int64:
			return core.Bool(v != 0), nil
		case []byte:
			return core.Bool(string(v) == "1" || strings.EqualFold(string(v), "true")), nil
		case string:
			return core.Bool(v == "1" || strings.EqualFold(v, "true")), nil
		}
	case strings.Contains(typeName, "JSON"):
		switch v := raw.(type) {
		case []any:
			return core.ValueOf(v), nil
		case []byte:
			return decodeList(v)
		case string:
			return decodeList([]byte(v))
		}
	}
	return core.ValueOf(raw), nil
}

func decodeList(data []byte) (core.Value, error) {
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return core.Null(), fmt.Errorf("invalid list: %w", err)
	}
	return core.ValueOf(items), nil
}
