// Package snapshot keeps a compressed copy of every source table in object
// storage and refreshes it on a schedule.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"

	forgeerrors "github.com/forgev2/forge-admin/internal/errors"
	"github.com/forgev2/forge-admin/internal/source"
	"github.com/forgev2/forge-admin/internal/storage"
	"github.com/forgev2/forge-admin/pkg/types"
)

const (
	objectPrefix = "snapshots/"
	objectSuffix = ".json.sz"

	metaTable       = "table"
	metaRows        = "rows"
	metaFingerprint = "fingerprint"
	metaSavedAt     = "saved-at"
)

// Snapshot is one decoded table snapshot.
type Snapshot struct {
	Table   string
	Columns []string
	Rows    []types.Row
	// Fingerprint is the murmur3 hash of the uncompressed payload.
	Fingerprint string
	SavedAt     time.Time
}

// envelope is the uncompressed payload layout.
type envelope struct {
	Table   string          `json:"table"`
	Columns []string        `json:"columns"`
	Rows    json.RawMessage `json:"rows"`
}

// ObjectPath returns the storage key of a table snapshot.
func ObjectPath(table string) string {
	return objectPrefix + table + objectSuffix
}

// Store encodes snapshots as JSON, compresses them with snappy and writes
// them to object storage.
type Store struct {
	storage storage.ObjectStorage
	logger  *zap.Logger
	now     func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store logger.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store over the given object storage.
func NewStore(objects storage.ObjectStorage, opts ...StoreOption) *Store {
	s := &Store{storage: objects, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save replaces the snapshot of table and returns the object path written.
func (s *Store) Save(ctx context.Context, table *source.Table) (string, error) {
	rows, err := MarshalRows(table.Columns, table.Rows)
	if err != nil {
		return "", forgeerrors.NewSnapshotError(forgeerrors.CodeWriteFailed, "failed to encode snapshot rows", err)
	}
	payload, err := json.Marshal(envelope{Table: table.Name, Columns: table.Columns, Rows: rows})
	if err != nil {
		return "", forgeerrors.NewSnapshotError(forgeerrors.CodeWriteFailed, "failed to encode snapshot", err)
	}

	path := ObjectPath(table.Name)
	meta := map[string]string{
		metaTable:       table.Name,
		metaRows:        strconv.Itoa(len(table.Rows)),
		metaFingerprint: Fingerprint(payload),
		metaSavedAt:     s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.storage.Put(ctx, path, snappy.Encode(nil, payload), meta); err != nil {
		return "", forgeerrors.NewStorageError(forgeerrors.CodeUploadFailed, fmt.Sprintf("failed to store snapshot %s", table.Name), err)
	}

	s.logger.Info("snapshot saved",
		zap.String("table", table.Name),
		zap.Int("rows", len(table.Rows)),
		zap.Int("payload_bytes", len(payload)),
		zap.String("fingerprint", meta[metaFingerprint]))
	return path, nil
}

// Load reads and verifies the snapshot of table.
func (s *Store) Load(ctx context.Context, table string) (*Snapshot, error) {
	obj, err := s.storage.Get(ctx, ObjectPath(table))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, forgeerrors.NewSnapshotError(forgeerrors.CodeSnapshotMissing, fmt.Sprintf("no snapshot for table %s", table), err).
			WithDetails(map[string]interface{}{"table": table})
	}
	if err != nil {
		return nil, forgeerrors.NewStorageError(forgeerrors.CodeDownloadFailed, fmt.Sprintf("failed to read snapshot %s", table), err)
	}

	payload, err := snappy.Decode(nil, obj.Data)
	if err != nil {
		return nil, corrupt(table, err)
	}

	fp := Fingerprint(payload)
	if want, ok := obj.Metadata[metaFingerprint]; ok && want != fp {
		return nil, corrupt(table, fmt.Errorf("fingerprint mismatch: stored %s, computed %s", want, fp))
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, corrupt(table, err)
	}
	rows := []types.Row{}
	if len(env.Rows) > 0 && !bytes.Equal(env.Rows, []byte("null")) {
		if err := json.Unmarshal(env.Rows, &rows); err != nil {
			return nil, corrupt(table, err)
		}
	}

	savedAt := obj.ModTime
	if v, ok := obj.Metadata[metaSavedAt]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			savedAt = t
		}
	}

	return &Snapshot{
		Table:       table,
		Columns:     env.Columns,
		Rows:        rows,
		Fingerprint: fp,
		SavedAt:     savedAt,
	}, nil
}

// Tables lists the tables that currently have a snapshot.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	paths, err := s.storage.List(ctx, objectPrefix)
	if err != nil {
		return nil, forgeerrors.NewStorageError(forgeerrors.CodeDownloadFailed, "failed to list snapshots", err)
	}
	tables := make([]string, 0, len(paths))
	for _, p := range paths {
		if !strings.HasSuffix(p, objectSuffix) {
			continue
		}
		tables = append(tables, strings.TrimSuffix(strings.TrimPrefix(p, objectPrefix), objectSuffix))
	}
	return tables, nil
}

// Fingerprint returns the hex murmur3 hash of payload.
func Fingerprint(payload []byte) string {
	return fmt.Sprintf("%016x", murmur3.Sum64(payload))
}

// MarshalRows encodes rows as a JSON array whose objects list the given
// columns first, in order, followed by any other keys sorted.
func MarshalRows(columns []string, rows []types.Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		if row == nil {
			buf.WriteString("null")
			continue
		}
		if err := writeRow(&buf, columns, row); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeRow(buf *bytes.Buffer, columns []string, row types.Row) error {
	seen := make(map[string]bool, len(columns))
	keys := make([]string, 0, len(row))
	for _, c := range columns {
		if _, ok := row[c]; ok && !seen[c] {
			seen[c] = true
			keys = append(keys, c)
		}
	}
	var extra []string
	for k := range row {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return err
		}
		value, err := json.Marshal(row[k])
		if err != nil {
			return fmt.Errorf("column %s: %w", k, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return nil
}

func corrupt(table string, err error) error {
	return forgeerrors.NewSnapshotError(forgeerrors.CodeSnapshotCorrupt, fmt.Sprintf("snapshot %s is unreadable", table), err).
		WithDetails(map[string]interface{}{"table": table})
}
