package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "test-bucket"})
	require.NoError(t, err)
	return store
}

func TestParseURI(t *testing.T) {
	t.Parallel()

	bucket, object, err := ParseURI("gs://nobel-exports/runs/out.csv")
	require.NoError(t, err)
	assert.Equal(t, "nobel-exports", bucket)
	assert.Equal(t, "runs/out.csv", object)

	for _, bad := range []string{"gs://", "gs://bucket", "gs://bucket/", "/tmp/out.csv"} {
		_, _, err := ParseURI(bad)
		assert.Error(t, err, bad)
	}
	assert.True(t, IsURI("gs://bucket/out.csv"))
	assert.False(t, IsURI("./out.csv"))
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close()
	_, err = New(client, Config{})
	require.Error(t, err)
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	bodies := make(chan string, 1)
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/b/test-bucket/o")
		assert.Equal(t, "exports/out.csv", r.URL.Query().Get("name"))
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		bodies <- string(raw)
		fmt.Fprintln(w, `{"bucket":"test-bucket","name":"exports/out.csv"}`)
	}))

	uri, err := store.PutObject(context.Background(), "exports/out.csv", "text/csv", strings.NewReader("url,id\n"))
	require.NoError(t, err)
	assert.Equal(t, "gs://test-bucket/exports/out.csv", uri)
	body := <-bodies
	assert.Contains(t, body, "url,id")
	assert.Contains(t, body, "text/csv")
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := store.PutObject(context.Background(), "out.csv", "text/csv", strings.NewReader("data"))
	require.Error(t, err)
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.NotFoundHandler())
	_, err := store.PutObject(context.Background(), " ", "text/csv", strings.NewReader("data"))
	require.Error(t, err)
}
