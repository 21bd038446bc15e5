package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umassos/openwhisk/models"
)

type fakeReader struct {
	actions map[string]*models.Action
	err     error
	fetches int
}

func readerKey(namespace, name, revision string) string {
	return fmt.Sprintf("%s/%s@%s", namespace, name, revision)
}

func (f *fakeReader) GetAction(ctx context.Context, namespace, name, revision string) (*models.Action, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	if action, ok := f.actions[readerKey(namespace, name, revision)]; ok {
		copied := *action
		return &copied, nil
	}
	return nil, ErrActionNotFound
}

type fakeArtifacts struct {
	code map[string]string
	err  error
}

func (f *fakeArtifacts) SaveArtifact(ctx context.Context, key, code string) error {
	f.code[key] = code
	return nil
}

func (f *fakeArtifacts) GetArtifact(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.code[key], nil
}

func (f *fakeArtifacts) DeleteArtifact(ctx context.Context, key string) error {
	delete(f.code, key)
	return nil
}

func newCatalogFixture() (*CatalogService, *fakeReader, *fakeArtifacts) {
	reader := &fakeReader{actions: map[string]*models.Action{}}
	artifacts := &fakeArtifacts{code: map[string]string{}}
	catalog := NewCatalogService(reader, artifacts, log.New(io.Discard))
	return catalog, reader, artifacts
}

func seedAction(reader *fakeReader, artifacts *fakeArtifacts, revision string) models.ActionRef {
	action := &models.Action{
		Namespace: "guest",
		Name:      "echo",
		Revision:  revision,
		Runtime:   "python3.11",
		CodeKey:   "code/echo.py",
	}
	reader.actions[readerKey("guest", "echo", revision)] = action
	// The empty-revision key models "newest entry for (namespace, name)".
	reader.actions[readerKey("guest", "echo", "")] = action
	artifacts.code["code/echo.py"] = "def main(event): return event"
	return models.ActionRef{Namespace: "guest", Name: "echo", Revision: revision}
}

func TestResolve_PinnedRevisionIsCached(t *testing.T) {
	catalog, reader, artifacts := newCatalogFixture()
	ref := seedAction(reader, artifacts, "1-abc")

	first, derr := catalog.Resolve(context.Background(), ref)
	require.Nil(t, derr)
	assert.Equal(t, "def main(event): return event", first.Code)
	assert.Equal(t, 1, reader.fetches)

	second, derr := catalog.Resolve(context.Background(), ref)
	require.Nil(t, derr)
	assert.Equal(t, 1, reader.fetches, "second pinned resolution must not repeat the fetch")
	assert.Equal(t, first.Name, second.Name)
}

func TestResolve_UnpinnedRevisionBypassesCache(t *testing.T) {
	catalog, reader, artifacts := newCatalogFixture()
	seedAction(reader, artifacts, "1-abc")
	unpinned := models.ActionRef{Namespace: "guest", Name: "echo"}

	_, derr := catalog.Resolve(context.Background(), unpinned)
	require.Nil(t, derr)
	_, derr = catalog.Resolve(context.Background(), unpinned)
	require.Nil(t, derr)

	assert.Equal(t, 2, reader.fetches, "unpinned lookups always hit the store")

	// The fetched document carried a concrete revision, so pinned callers
	// benefit from the populated cache.
	_, derr = catalog.Resolve(context.Background(), models.ActionRef{Namespace: "guest", Name: "echo", Revision: "1-abc"})
	require.Nil(t, derr)
	assert.Equal(t, 2, reader.fetches)
}

func TestResolve_CallersGetPrivateCopies(t *testing.T) {
	catalog, reader, artifacts := newCatalogFixture()
	ref := seedAction(reader, artifacts, "1-abc")

	first, derr := catalog.Resolve(context.Background(), ref)
	require.Nil(t, derr)
	first.Code = "tampered"

	second, derr := catalog.Resolve(context.Background(), ref)
	require.Nil(t, derr)
	assert.Equal(t, "def main(event): return event", second.Code)
}

func TestResolve_FailureClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind FailureKind
	}{
		{"not found", ErrActionNotFound, FailureActionNotFound},
		{"mismatch", fmt.Errorf("%w: bad column", ErrActionMismatch), FailureActionMismatch},
		{"other", errors.New("connection refused"), FailureFetch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			catalog, reader, _ := newCatalogFixture()
			reader.err = tc.err

			_, derr := catalog.Resolve(context.Background(), models.ActionRef{Namespace: "guest", Name: "echo", Revision: "1-abc"})
			require.NotNil(t, derr)
			assert.Equal(t, tc.kind, derr.Kind)
		})
	}
}

func TestResolve_NonExecutableStubIsRejected(t *testing.T) {
	catalog, reader, _ := newCatalogFixture()
	reader.actions[readerKey("guest", "stub", "1-abc")] = &models.Action{
		Namespace: "guest",
		Name:      "stub",
		Revision:  "1-abc",
	}

	_, derr := catalog.Resolve(context.Background(), models.ActionRef{Namespace: "guest", Name: "stub", Revision: "1-abc"})
	require.NotNil(t, derr)
	assert.Equal(t, FailureNonExecutable, derr.Kind)
	assert.Zero(t, catalog.CacheSize(), "stubs are never cached")
}

func TestResolve_ArtifactErrorIsFetchFailure(t *testing.T) {
	catalog, reader, artifacts := newCatalogFixture()
	ref := seedAction(reader, artifacts, "1-abc")
	artifacts.err = errors.New("bucket unavailable")

	_, derr := catalog.Resolve(context.Background(), ref)
	require.NotNil(t, derr)
	assert.Equal(t, FailureFetch, derr.Kind)
}
