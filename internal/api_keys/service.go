package api_keys

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opendatahub-io/key-ledger/internal/logger"
	"github.com/opendatahub-io/key-ledger/internal/metrics"
)

const (
	opAdd        = "add"
	opSoftDelete = "soft_delete"
	opHardDelete = "hard_delete"
)

// Service implements the key operations on top of a Store.
//
// All operations hold one mutex for their whole check-mutate-persist-log
// sequence, so two concurrent writers can never both act on a stale view of
// the store.
type Service struct {
	store  Store
	logger *logger.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewService(log *logger.Logger, store Store) *Service {
	return &Service{
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// Add stores a new key. It returns a *ValidationError when either argument is
// empty and a *DuplicateKeyError when the key is already stored. Any other
// error is a storage failure.
func (s *Service) Add(ctx context.Context, apiKey, expiredTime string) error {
	if apiKey == "" {
		s.countOperation(opAdd, metrics.OutcomeError)
		return &ValidationError{Field: "api_key", Err: ErrEmptyAPIKey}
	}
	if expiredTime == "" {
		s.countOperation(opAdd, metrics.OutcomeError)
		return &ValidationError{Field: "expired_time", Err: ErrEmptyExpiry}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := KeyRecord{
		Expired:   expiredTime,
		CreatedAt: Timestamp(s.now()),
		Deleted:   false,
	}

	if err := s.store.Create(ctx, apiKey, rec); err != nil {
		if errors.Is(err, ErrKeyExists) {
			s.countOperation(opAdd, metrics.OutcomeError)
			return &DuplicateKeyError{APIKey: apiKey}
		}
		s.countOperation(opAdd, metrics.OutcomeFailure)
		return fmt.Errorf("failed to store api key: %w", err)
	}

	if err := s.appendLog(ctx, ActionAdd, apiKey); err != nil {
		s.countOperation(opAdd, metrics.OutcomeFailure)
		return err
	}

	s.countOperation(opAdd, metrics.OutcomeSuccess)
	s.logger.Debug("API key added", "api_key", apiKey, "expired", expiredTime)
	return nil
}

// Get reports the status of a key. It never mutates the store or the log.
// A store read failure is logged and treated as an absent key.
func (s *Service) Get(ctx context.Context, apiKey string) Lookup {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Get(ctx, apiKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("Failed to read api key, treating as absent", "api_key", apiKey, "error", err)
		}
		rec = nil
	}

	status := Evaluate(rec, s.now())
	metrics.KeyLookupsTotal.WithLabelValues(string(status)).Inc()

	if status == StatusInvalid {
		return Lookup{Status: status}
	}
	return Lookup{Status: status, Record: rec}
}

// SoftDelete flags a key as deleted. Repeating it on an already deleted key
// succeeds and logs again. Returns a *NotFoundError for an absent key.
func (s *Service) SoftDelete(ctx context.Context, apiKey string) error {
	return s.remove(ctx, opSoftDelete, ActionSoftDelete, apiKey, s.store.MarkDeleted)
}

// HardDelete removes a key from the store. Its log entries are kept.
// Returns a *NotFoundError for an absent key.
func (s *Service) HardDelete(ctx context.Context, apiKey string) error {
	return s.remove(ctx, opHardDelete, ActionHardDelete, apiKey, s.store.Delete)
}

func (s *Service) remove(ctx context.Context, op string, action Action, apiKey string, apply func(context.Context, string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := apply(ctx, apiKey); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			s.countOperation(op, metrics.OutcomeError)
			return &NotFoundError{APIKey: apiKey}
		}
		s.countOperation(op, metrics.OutcomeFailure)
		return fmt.Errorf("failed to %s api key: %w", action, err)
	}

	if err := s.appendLog(ctx, action, apiKey); err != nil {
		s.countOperation(op, metrics.OutcomeFailure)
		return err
	}

	s.countOperation(op, metrics.OutcomeSuccess)
	s.logger.Debug("API key removed", "api_key", apiKey, "action", action)
	return nil
}

// ListKeys returns every stored record. A read failure yields an empty map.
func (s *Service) ListKeys(ctx context.Context) map[string]KeyRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.store.List(ctx)
	if err != nil {
		s.logger.Warn("Failed to list api keys, returning empty set", "error", err)
		return map[string]KeyRecord{}
	}
	return keys
}

// ListLogs returns the action log in insertion order. A read failure yields
// an empty log.
func (s *Service) ListLogs(ctx context.Context) []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Logs(ctx)
	if err != nil {
		s.logger.Warn("Failed to read action log, returning empty log", "error", err)
		return []LogEntry{}
	}
	return entries
}

func (s *Service) appendLog(ctx context.Context, action Action, apiKey string) error {
	entry := LogEntry{
		Action: action,
		APIKey: apiKey,
		Time:   Timestamp(s.now()),
	}
	if err := s.store.AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to append %q log entry: %w", action, err)
	}
	metrics.ActionLogEntriesTotal.WithLabelValues(string(action)).Inc()
	return nil
}

func (s *Service) countOperation(op, outcome string) {
	metrics.KeyOperationsTotal.WithLabelValues(op, outcome).Inc()
}
