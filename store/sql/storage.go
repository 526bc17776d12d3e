package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-peers/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const containsQuery = "SELECT peer_id, is_registered FROM " + registrationsTable + " WHERE peer_id = ?"

// Storage keeps registration records in a single SQL table. All access to the
// shared handle is serialized.
type Storage struct {
	mu   sync.Mutex
	db   *bun.DB
	repo repository.Repository[*peerRegistrationRecord]
	now  func() time.Time
}

func NewStorage(db *bun.DB) (*Storage, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*peerRegistrationRecord](db, peerRegistrationHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid peer registration repository wiring: %w", err)
		}
	}
	return &Storage{
		db:   db,
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Storage) Backend() string {
	if s == nil || s.db == nil {
		return "sql"
	}
	return strings.ToLower(s.db.Dialect().Name().String())
}

func (s *Storage) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: storage is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.NewCreateTable().
		Model((*peerRegistrationRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: create %s: %w", registrationsTable, err)
	}
	return nil
}

// Contains reads the row without the ORM so that a row of the wrong shape is
// reported as corrupted instead of being coerced.
func (s *Storage) Contains(ctx context.Context, peerID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: storage is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, containsQuery, peerID)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return false, err
	}
	if len(columns) != 2 {
		return false, core.CorruptedRecord(peerID, fmt.Sprintf("expected 2 columns, got %d", len(columns)))
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return false, err
		}
		return false, nil
	}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := rows.Scan(pointers...); err != nil {
		return false, core.CorruptedRecord(peerID, err.Error())
	}
	if _, err := decodePeerID(values[0]); err != nil {
		return false, core.CorruptedRecord(peerID, err.Error())
	}
	registered, err := decodeRegisteredFlag(values[1])
	if err != nil {
		return false, core.CorruptedRecord(peerID, err.Error())
	}
	return registered, rows.Err()
}

func (s *Storage) Upsert(ctx context.Context, peerID string, isRegistered bool) error {
	if s == nil || s.db == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: storage is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findRegistrationTx(ctx, tx, peerID)
		if err != nil {
			return err
		}
		if existing == nil {
			record := newPeerRegistrationRecord(peerID, isRegistered, now)
			if _, createErr := s.repo.CreateTx(ctx, tx, record); createErr != nil {
				if !isUniqueViolation(createErr) {
					return createErr
				}
			} else {
				return nil
			}
		}
		_, err = tx.NewUpdate().
			Model((*peerRegistrationRecord)(nil)).
			Set("is_registered = ?", isRegistered).
			Set("updated_at = ?", now).
			Where("peer_id = ?", peerID).
			Exec(ctx)
		return err
	})
}

func (s *Storage) Delete(ctx context.Context, peerID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: storage is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.NewDelete().
		Model((*peerRegistrationRecord)(nil)).
		Where("peer_id = ?", peerID).
		Exec(ctx)
	return err
}

func (s *Storage) List(ctx context.Context) ([]core.RegistrationRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: storage is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.is_registered = ?", true)
		}),
		repository.OrderBy("peer_id ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.RegistrationRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func findRegistrationTx(ctx context.Context, tx bun.Tx, peerID string) (*peerRegistrationRecord, error) {
	record := &peerRegistrationRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.peer_id = ?", peerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func decodePeerID(value any) (string, error) {
	switch typed := value.(type) {
	case string:
		return typed, nil
	case []byte:
		return string(typed), nil
	default:
		return "", fmt.Errorf("peer_id has unexpected type %T", value)
	}
}

func decodeRegisteredFlag(value any) (bool, error) {
	switch typed := value.(type) {
	case bool:
		return typed, nil
	case int64:
		return decodeIntFlag(typed)
	case []byte:
		return decodeTextFlag(string(typed))
	case string:
		return decodeTextFlag(typed)
	case nil:
		return false, fmt.Errorf("is_registered is null")
	default:
		return false, fmt.Errorf("is_registered has unexpected type %T", value)
	}
}

func decodeIntFlag(value int64) (bool, error) {
	switch value {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("is_registered has unexpected value %d", value)
	}
}

func decodeTextFlag(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "t", "true":
		return true, nil
	case "f", "false":
		return false, nil
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return false, fmt.Errorf("is_registered has unexpected value %q", value)
	}
	return decodeIntFlag(parsed)
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
