package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(id, content string) *core.Document {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &core.Document{
		ID:          core.DocumentID(id),
		Collection:  "gita",
		Content:     content,
		Metadata:    map[string]string{"source_file": "verses.csv"},
		ContentType: core.ContentTypeText,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := testDoc("aaaa", "first verse")
	require.NoError(t, s.PutDocuments(ctx, doc))

	got, err := s.GetDocument(ctx, "aaaa")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestStore_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutDocuments(ctx, testDoc("aaaa", "old")))
	require.NoError(t, s.PutDocuments(ctx, testDoc("aaaa", "new")))

	got, err := s.GetDocument(ctx, "aaaa")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Content)

	count, err := s.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_ListAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs := make([]*core.Document, 5)
	for i := range docs {
		docs[i] = testDoc(fmt.Sprintf("doc%02d", i), fmt.Sprintf("verse %d", i))
	}
	require.NoError(t, s.PutDocuments(ctx, docs...))

	count, err := s.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	all, err := s.ListDocuments(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	// key order is ID order
	assert.Equal(t, core.DocumentID("doc00"), all[0].ID)

	limited, err := s.ListDocuments(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutDocuments(ctx, testDoc("aaaa", "verse")))
	require.NoError(t, s.DeleteDocuments(ctx, "aaaa", "not-there"))

	_, err := s.GetDocument(ctx, "aaaa")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ClosedErrors(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	err := s.PutDocuments(context.Background(), testDoc("aaaa", "verse"))
	assert.ErrorIs(t, err, store.ErrStoreClosed)
}

func TestStore_ContextCancelled(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.PutDocuments(ctx, testDoc("aaaa", "verse"))
	assert.ErrorIs(t, err, context.Canceled)
}
