package services

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// BlacklistService is the admission filter: a namespace blacklist persisted
// in the database and mirrored in memory so that the per-activation check
// costs no I/O. The mirror refreshes on a ticker and immediately after any
// change made through this service.
type BlacklistService struct {
	db       *DBService
	logger   *log.Logger
	interval time.Duration

	mu      sync.RWMutex
	blocked map[string]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewBlacklistService(db *DBService, interval time.Duration, logger *log.Logger) *BlacklistService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &BlacklistService{
		db:       db,
		logger:   logger,
		interval: interval,
		blocked:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
	}
}

// IsBlocked reports whether a namespace is denied admission. Pure in-memory
// read; safe for concurrent pipeline invocations.
func (s *BlacklistService) IsBlocked(namespace string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, blocked := s.blocked[namespace]
	return blocked
}

// Refresh reloads the in-memory mirror from the database.
func (s *BlacklistService) Refresh(ctx context.Context) error {
	namespaces, err := s.db.ListBlacklistedNamespaces(ctx)
	if err != nil {
		return err
	}

	blocked := make(map[string]struct{}, len(namespaces))
	for _, ns := range namespaces {
		blocked[ns] = struct{}{}
	}

	s.mu.Lock()
	s.blocked = blocked
	s.mu.Unlock()
	return nil
}

// Block adds a namespace to the blacklist and refreshes the mirror.
func (s *BlacklistService) Block(ctx context.Context, namespace, reason string) error {
	if err := s.db.AddBlacklistedNamespace(ctx, namespace, reason); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Unblock removes a namespace from the blacklist and refreshes the mirror.
func (s *BlacklistService) Unblock(ctx context.Context, namespace string) error {
	if err := s.db.RemoveBlacklistedNamespace(ctx, namespace); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// List returns the blacklisted namespaces currently in the mirror.
func (s *BlacklistService) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	namespaces := make([]string, 0, len(s.blocked))
	for ns := range s.blocked {
		namespaces = append(namespaces, ns)
	}
	return namespaces
}

// Start launches the periodic refresh loop.
func (s *BlacklistService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Refresh(context.Background()); err != nil {
					s.logger.Error("blacklist refresh failed", "err", err)
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *BlacklistService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}
