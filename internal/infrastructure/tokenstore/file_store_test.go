package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"avena-triage-core/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(dir, zerolog.Nop())
	require.NoError(t, err)
	return store, dir
}

func testCredential(storeID string) *domain.Credential {
	return &domain.Credential{
		StoreID:       storeID,
		AccessToken:   "shpat_" + storeID,
		Scopes:        []string{"read_orders", "read_customers"},
		IssuedAt:      time.Now(),
		LastValidated: time.Now(),
	}
}

func TestGetAfterPut(t *testing.T) {
	store, _ := newTestStore(t)

	cred := testCredential("avena-paris")
	require.NoError(t, store.Put("avena-paris", cred))

	got, err := store.Get("avena-paris")
	require.NoError(t, err)
	assert.Equal(t, cred.AccessToken, got.AccessToken)
	assert.Equal(t, cred.Scopes, got.Scopes)
}

func TestGetUnknownStore(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestGetAfterInvalidate(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, store.Put("avena-paris", testCredential("avena-paris")))
	require.NoError(t, store.Invalidate("avena-paris"))

	_, err := store.Get("avena-paris")
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	// Record is retained on disk for audit.
	_, statErr := os.Stat(filepath.Join(dir, "avena-paris.json"))
	assert.NoError(t, statErr)
}

func TestInvalidateUnknownStore(t *testing.T) {
	store, _ := newTestStore(t)
	assert.ErrorIs(t, store.Invalidate("nope"), domain.ErrNotConnected)
}

func TestExpiredCredentialNotConnected(t *testing.T) {
	store, _ := newTestStore(t)

	expired := time.Now().Add(-time.Hour)
	cred := testCredential("avena-paris")
	cred.ExpiresAt = &expired
	require.NoError(t, store.Put("avena-paris", cred))

	_, err := store.Get("avena-paris")
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	assert.Empty(t, store.ListConnected())
}

func TestPutOverwritesOnlyThatStore(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Put("avena-paris", testCredential("avena-paris")))
	require.NoError(t, store.Put("avena-berlin", testCredential("avena-berlin")))

	replacement := testCredential("avena-paris")
	replacement.AccessToken = "shpat_rotated"
	require.NoError(t, store.Put("avena-paris", replacement))

	got, err := store.Get("avena-paris")
	require.NoError(t, err)
	assert.Equal(t, "shpat_rotated", got.AccessToken)

	other, err := store.Get("avena-berlin")
	require.NoError(t, err)
	assert.Equal(t, "shpat_avena-berlin", other.AccessToken)
}

func TestListConnected(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Put("b-store", testCredential("b-store")))
	require.NoError(t, store.Put("a-store", testCredential("a-store")))
	require.NoError(t, store.Put("c-store", testCredential("c-store")))
	require.NoError(t, store.Invalidate("c-store"))

	assert.Equal(t, []string{"a-store", "b-store"}, store.ListConnected())
}

func TestSurvivesRestart(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.Put("avena-paris", testCredential("avena-paris")))

	reopened, err := NewFileStore(dir, zerolog.Nop())
	require.NoError(t, err)

	got, err := reopened.Get("avena-paris")
	require.NoError(t, err)
	assert.Equal(t, "shpat_avena-paris", got.AccessToken)
}

func TestCorruptRecordDroppedWithoutAffectingOthers(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.Put("avena-paris", testCredential("avena-paris")))
	require.NoError(t, store.Put("avena-berlin", testCredential("avena-berlin")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "avena-berlin.json"), []byte("{not json"), 0o600))

	reopened, err := NewFileStore(dir, zerolog.Nop())
	require.NoError(t, err)

	_, err = reopened.Get("avena-berlin")
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	got, err := reopened.Get("avena-paris")
	require.NoError(t, err)
	assert.Equal(t, "shpat_avena-paris", got.AccessToken)
}

func TestConcurrentAccessDistinctStores(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Put("reader-store", testCredential("reader-store")))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = store.Put("writer-store", testCredential("writer-store"))
		}
	}()
	for i := 0; i < 50; i++ {
		_, err := store.Get("reader-store")
		assert.NoError(t, err)
	}
	<-done
}
