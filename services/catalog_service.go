package services

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/charmbracelet/log"

	"github.com/umassos/openwhisk/models"
)

// ArtifactReader is the catalog read interface. An implementation reports
// ErrActionNotFound for missing documents and ErrActionMismatch for documents
// that exist but cannot be read as actions; everything else is treated as a
// generic fetch failure.
type ArtifactReader interface {
	GetAction(ctx context.Context, namespace, name, revision string) (*models.Action, error)
}

type cacheKey struct {
	namespace string
	name      string
	revision  string
}

// CatalogService resolves activation targets against the versioned action
// catalog. Entries fetched under a concrete revision are immutable, so the
// read-through cache never invalidates; unpinned lookups always go to the
// store.
type CatalogService struct {
	reader  ArtifactReader
	storage ArtifactStorage
	logger  *log.Logger

	mu    sync.RWMutex
	cache map[cacheKey]models.Action
}

func NewCatalogService(reader ArtifactReader, storage ArtifactStorage, logger *log.Logger) *CatalogService {
	return &CatalogService{
		reader:  reader,
		storage: storage,
		logger:  logger,
		cache:   make(map[cacheKey]models.Action),
	}
}

// Resolve fetches the executable action for ref. Callers always receive a
// private copy; cache internals are never exposed.
func (s *CatalogService) Resolve(ctx context.Context, ref models.ActionRef) (*models.Action, *DispatchError) {
	if ref.Revision == "" {
		// Unpinned lookups are tolerated but discouraged: they force a
		// fresh read on every activation.
		s.logger.Warn("resolving action without a pinned revision, bypassing cache",
			"action", ref.FullyQualified())
	} else {
		key := cacheKey{namespace: ref.Namespace, name: ref.Name, revision: ref.Revision}
		s.mu.RLock()
		cached, ok := s.cache[key]
		s.mu.RUnlock()
		if ok {
			action := cached
			return &action, nil
		}
	}

	action, derr := s.fetch(ctx, ref)
	if derr != nil {
		return nil, derr
	}

	if !action.Executable() {
		// A stub should never have been enqueued for execution; this is
		// an upstream catalog bug, not a caller mistake.
		s.logger.Error("non-executable action reached the invoker",
			"action", action.FullyQualified(), "revision", action.Revision)
		return nil, dispatchFailure(FailureNonExecutable, nil)
	}

	// The fetched document carries its concrete revision, so it is safe to
	// cache even when the request left the revision unpinned.
	key := cacheKey{namespace: action.Namespace, name: action.Name, revision: action.Revision}
	s.mu.Lock()
	if _, ok := s.cache[key]; !ok {
		s.cache[key] = *action
	}
	s.mu.Unlock()

	result := *action
	return &result, nil
}

func (s *CatalogService) fetch(ctx context.Context, ref models.ActionRef) (*models.Action, *DispatchError) {
	var action *models.Action
	var err error
	xray.Capture(ctx, "Catalog.GetAction", func(ctx1 context.Context) error {
		action, err = s.reader.GetAction(ctx, ref.Namespace, ref.Name, ref.Revision)
		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("catalog.action", ref.FullyQualified())
			seg.AddMetadata("catalog.revision", ref.Revision)
		}
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrActionNotFound):
			return nil, dispatchFailure(FailureActionNotFound, err)
		case errors.Is(err, ErrActionMismatch):
			return nil, dispatchFailure(FailureActionMismatch, err)
		default:
			return nil, dispatchFailure(FailureFetch, err)
		}
	}

	// Derive the executable form: load the code artifact for real actions.
	// Stubs have no artifact and are rejected by the caller.
	if action.CodeKey != "" {
		code, err := s.storage.GetArtifact(ctx, action.CodeKey)
		if err != nil {
			return nil, dispatchFailure(FailureFetch, err)
		}
		action.Code = code
	}

	return action, nil
}

// CacheSize reports the number of cached catalog entries.
func (s *CatalogService) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}
