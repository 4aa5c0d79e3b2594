package gcs_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/pagewatch/internal/storage/gcs"
)

type upload struct {
	path  string
	name  string
	query string
	body  string
}

func newTestStore(t *testing.T, handler http.Handler) *gcs.BlobStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := gcs.Connect(context.Background(), gcs.Config{Bucket: "captures"},
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	uploads := make(chan upload, 1)
	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		uploads <- upload{
			path:  r.URL.Path,
			name:  r.URL.Query().Get("name"),
			query: r.URL.Query().Get("uploadType"),
			body:  string(body),
		}
		fmt.Fprintln(w, `{"bucket":"captures","name":"pages/a.html"}`)
	}))

	uri, err := store.PutObject(context.Background(), "pages/a.html", "text/html", []byte("<html>changed</html>"))
	require.NoError(t, err)
	require.Equal(t, "gs://captures/pages/a.html", uri)

	got := <-uploads
	require.Contains(t, got.path, "/upload/storage/v1/b/captures/o")
	require.Equal(t, "pages/a.html", got.name)
	require.Equal(t, "multipart", got.query)
	require.Contains(t, got.body, "<html>changed</html>")
	require.Contains(t, got.body, "text/html")
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := store.PutObject(context.Background(), "pages/a.html", "text/html", []byte("x"))
	require.Error(t, err)
}

func TestValidation(t *testing.T) {
	t.Parallel()

	_, err := gcs.New(nil, gcs.Config{Bucket: "b"})
	require.Error(t, err)

	store := newTestStore(t, http.NotFoundHandler())
	_, err = store.PutObject(context.Background(), " ", "", nil)
	require.ErrorContains(t, err, "path is required")
}
