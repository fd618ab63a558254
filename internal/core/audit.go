package core

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditAction is the pipeline operation an entry records.
type AuditAction string

const (
	ActionUpload          AuditAction = "upload"
	ActionExport          AuditAction = "export"
	ActionPreviewDownload AuditAction = "preview_download"
)

// DefaultAuditLimit caps Recent when no limit is given.
const DefaultAuditLimit = 50

// AuditEntry is one row of the conversion audit log. It never holds cell
// data.
type AuditEntry struct {
	ID           string      `json:"id"`
	Action       AuditAction `json:"action"`
	ConversionID string      `json:"conversionId,omitempty"`
	FileName     string      `json:"fileName,omitempty"`
	InnerName    string      `json:"innerName,omitempty"`
	Strategy     string      `json:"strategy,omitempty"`
	Rows         int         `json:"rows"`
	Columns      int         `json:"columns"`
	Format       string      `json:"format,omitempty"`
	Compression  string      `json:"compression,omitempty"`
	Bytes        int64       `json:"bytes"`
	ErrorCode    string      `json:"errorCode,omitempty"`
	IPAddress    string      `json:"ipAddress,omitempty"`
	UserAgent    string      `json:"userAgent,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// AuditRecorder persists audit entries. Failures are logged by the caller
// and never fail a conversion.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// nopAudit is used when no database is configured.
type nopAudit struct{}

func (nopAudit) Record(context.Context, AuditEntry) error { return nil }

// newAuditEntry fills the request-scoped fields from ctx.
func newAuditEntry(ctx context.Context, action AuditAction) AuditEntry {
	return AuditEntry{
		ID:           uuid.NewString(),
		Action:       action,
		ConversionID: ConversionIDFromContext(ctx),
		IPAddress:    ClientIPFromContext(ctx),
		UserAgent:    UserAgentFromContext(ctx),
		CreatedAt:    time.Now().UTC(),
	}
}

// auditSchema is applied by EnsureSchema on startup.
const auditSchema = `
CREATE TABLE IF NOT EXISTS conversion_audit (
    id             UUID PRIMARY KEY,
    action         TEXT NOT NULL,
    conversion_id  UUID,
    file_name      TEXT,
    inner_name     TEXT,
    strategy       TEXT,
    row_count      INTEGER,
    column_count   INTEGER,
    format         TEXT,
    compression    TEXT,
    byte_count     BIGINT,
    error_code     TEXT,
    ip_address     INET,
    user_agent     TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversion_audit_created_at_idx ON conversion_audit (created_at DESC);
`

const auditColumns = `id, action, conversion_id, file_name, inner_name, strategy,
    row_count, column_count, format, compression, byte_count, error_code,
    ip_address, user_agent, created_at`

// AuditService stores audit entries in Postgres.
type AuditService struct {
	pool *pgxpool.Pool
}

// NewAuditService creates an audit service on pool.
func NewAuditService(pool *pgxpool.Pool) *AuditService {
	return &AuditService{pool: pool}
}

// EnsureSchema creates the audit table if it does not exist.
func (a *AuditService) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, auditSchema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Record inserts entry. A missing ID or timestamp is filled in.
func (a *AuditService) Record(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := a.pool.Exec(ctx,
		`INSERT INTO conversion_audit (`+auditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		toPgUUID(entry.ID),
		string(entry.Action),
		toPgUUID(entry.ConversionID),
		toPgText(entry.FileName),
		toPgText(entry.InnerName),
		toPgText(entry.Strategy),
		toPgInt4(entry.Rows),
		toPgInt4(entry.Columns),
		toPgText(entry.Format),
		toPgText(entry.Compression),
		pgtype.Int8{Int64: entry.Bytes, Valid: true},
		toPgText(entry.ErrorCode),
		parseClientIP(entry.IPAddress),
		toPgText(entry.UserAgent),
		pgtype.Timestamptz{Time: entry.CreatedAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// AuditQuery filters Recent.
type AuditQuery struct {
	Action AuditAction
	Limit  int
	Offset int
}

// Recent returns entries newest first.
func (a *AuditService) Recent(ctx context.Context, q AuditQuery) ([]AuditEntry, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultAuditLimit
	}

	var (
		where []string
		args  []any
	)
	if q.Action != "" {
		args = append(args, string(q.Action))
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}

	query := "SELECT " + auditColumns + " FROM conversion_audit"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, q.Limit, q.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		entry, err := scanAuditRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return entries, nil
}

func scanAuditRow(rows pgx.Rows) (AuditEntry, error) {
	var (
		id           pgtype.UUID
		action       string
		conversionID pgtype.UUID
		fileName     pgtype.Text
		innerName    pgtype.Text
		strategy     pgtype.Text
		rowCount     pgtype.Int4
		columnCount  pgtype.Int4
		format       pgtype.Text
		compression  pgtype.Text
		byteCount    pgtype.Int8
		errorCode    pgtype.Text
		ipAddress    *netip.Addr
		userAgent    pgtype.Text
		createdAt    pgtype.Timestamptz
	)

	err := rows.Scan(
		&id, &action, &conversionID, &fileName, &innerName, &strategy,
		&rowCount, &columnCount, &format, &compression, &byteCount, &errorCode,
		&ipAddress, &userAgent, &createdAt,
	)
	if err != nil {
		return AuditEntry{}, err
	}

	entry := AuditEntry{
		ID:           pgUUIDToString(id),
		Action:       AuditAction(action),
		ConversionID: pgUUIDToString(conversionID),
		FileName:     fileName.String,
		InnerName:    innerName.String,
		Strategy:     strategy.String,
		Rows:         int(rowCount.Int32),
		Columns:      int(columnCount.Int32),
		Format:       format.String,
		Compression:  compression.String,
		Bytes:        byteCount.Int64,
		ErrorCode:    errorCode.String,
		UserAgent:    userAgent.String,
		CreatedAt:    createdAt.Time,
	}
	if ipAddress != nil {
		entry.IPAddress = ipAddress.String()
	}
	return entry, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgInt4(i int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// toPgUUID returns a NULL UUID for empty or malformed input.
func toPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func pgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// parseClientIP strips a port and parses the address. Unparsable input is
// stored as NULL.
func parseClientIP(s string) *netip.Addr {
	if s == "" {
		return nil
	}
	host := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return &addr
}
