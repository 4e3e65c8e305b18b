package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the flattened, log-friendly view of an error chain. The PG
// fields double as the constraint report for SQLite, which only exposes a
// message.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
	Details    any    `json:"details,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// sqlite reports constraint failures as "<KIND> constraint failed: <target>".
var sqliteConstraintCodes = map[string]string{
	"UNIQUE":      "23505",
	"CHECK":       "23514",
	"FOREIGN KEY": "23503",
	"NOT NULL":    "23502",
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}

	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Details = te.Details()
		d.Retryable = MetadataFor(te.Code()).Retryable
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if !d.fromPgx(err) && !d.fromPq(err) {
		d.fromSQLite(err)
	}
	return d
}

func (d *ErrorDump) fromPgx(err error) bool {
	var pgxErr *pgconn.PgError
	if !errors.As(err, &pgxErr) {
		return false
	}
	d.PGCode = pgxErr.Code
	d.PGConstraint = pgxErr.ConstraintName
	d.PGTable = pgxErr.TableName
	d.PGColumn = pgxErr.ColumnName
	d.PGDetail = pgxErr.Detail
	d.PGMessage = pgxErr.Message
	return true
}

func (d *ErrorDump) fromPq(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	d.PGCode = string(pqErr.Code)
	d.PGConstraint = pqErr.Constraint
	d.PGTable = pqErr.Table
	d.PGColumn = pqErr.Column
	d.PGDetail = pqErr.Detail
	d.PGMessage = pqErr.Message
	return true
}

func (d *ErrorDump) fromSQLite(err error) {
	msg := err.Error()
	idx := strings.Index(msg, " constraint failed: ")
	if idx < 0 {
		return
	}
	head := msg[:idx]
	for kind, code := range sqliteConstraintCodes {
		if strings.HasSuffix(head, kind) {
			d.PGCode = code
			break
		}
	}
	if d.PGCode == "" {
		return
	}
	target := strings.TrimSpace(msg[idx+len(" constraint failed: "):])
	d.PGMessage = target
	if table, column, ok := strings.Cut(target, "."); ok && !strings.ContainsAny(table, " ()") {
		d.PGTable = table
		d.PGColumn = column
		return
	}
	d.PGConstraint = target
}
