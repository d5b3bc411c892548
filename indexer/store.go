package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"refchain/core/events"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultListLimit = 100
	maxListLimit     = 1000
)

// Filter narrows an event listing. Empty fields match everything.
type Filter struct {
	Program     string
	Participant string
	Type        string
	// AfterSequence returns only events newer than the given sequence.
	AfterSequence uint64
	Limit         int
}

// Store persists committed events through gorm. It implements events.Emitter
// so the node can publish into it directly.
type Store struct {
	db     *gorm.DB
	log    *slog.Logger
	nowFn  func() time.Time
	mu     sync.Mutex
	nextSq uint64
}

// Open connects to the configured driver and migrates the schema.
func Open(driver, dsn string, log *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		if strings.TrimSpace(dsn) == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("indexer: postgres dsn required")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	return New(db, log)
}

// New wraps an existing gorm handle, migrating the schema first.
func New(db *gorm.DB, log *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	var last EventRecord
	err := db.Order("sequence desc").Limit(1).Take(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("indexer: load sequence: %w", err)
	}
	return &Store{
		db:     db,
		log:    log.With(slog.String("component", "indexer")),
		nowFn:  func() time.Time { return time.Now().UTC() },
		nextSq: last.Sequence + 1,
	}, nil
}

// Emit implements events.Emitter. Write failures are logged rather than
// returned because publication happens after the state commit.
func (s *Store) Emit(evt events.Event) {
	if _, err := s.Record(context.Background(), evt); err != nil {
		s.log.Error("index event", slog.String("type", evt.EventType()), slog.String("error", err.Error()))
	}
}

// Record persists evt and returns the stored row.
func (s *Store) Record(ctx context.Context, evt events.Event) (*EventRecord, error) {
	if evt == nil {
		return nil, fmt.Errorf("indexer: nil event")
	}
	payload := evt.Event()
	if payload == nil {
		return nil, fmt.Errorf("indexer: event %s has no payload", evt.EventType())
	}
	attrs, err := json.Marshal(payload.Attributes)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record := &EventRecord{
		ID:          uuid.New(),
		Sequence:    s.nextSq,
		Type:        payload.Type,
		Program:     payload.Attributes["program"],
		Participant: payload.Attributes["participant"],
		Attributes:  string(attrs),
		CreatedAt:   s.nowFn(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	s.nextSq++
	return record, nil
}

// List returns events matching filter in commit order.
func (s *Store) List(ctx context.Context, filter Filter) ([]EventRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query := s.db.WithContext(ctx).Model(&EventRecord{})
	if filter.Program != "" {
		query = query.Where("program = ?", filter.Program)
	}
	if filter.Participant != "" {
		query = query.Where("participant = ?", filter.Participant)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.AfterSequence > 0 {
		query = query.Where("sequence > ?", filter.AfterSequence)
	}
	var records []EventRecord
	if err := query.Order("sequence asc").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListByProgram returns the history of one program.
func (s *Store) ListByProgram(ctx context.Context, program string, limit int) ([]EventRecord, error) {
	return s.List(ctx, Filter{Program: program, Limit: limit})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
