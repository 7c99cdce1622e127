package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/nutrihub/internal/model"
)

const testKey = "service-key"

// fakeStorage keeps buckets in memory behind the storage REST routes.
type fakeStorage struct {
	mu      sync.Mutex
	buckets map[string]model.Bucket
}

func newFakeStorage(t *testing.T) (*fakeStorage, *httptest.Server) {
	fs := &fakeStorage{buckets: make(map[string]model.Bucket)}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+testKey || r.Header.Get("apikey") != testKey {
				http.Error(w, `{"message":"invalid key"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/storage/v1/bucket/{id}", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		b, ok := fs.buckets[chi.URLParam(r, "id")]
		fs.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"statusCode":"404","error":"Bucket not found","message":"Bucket not found"}`))
			return
		}
		json.NewEncoder(w).Encode(b)
	})
	r.Post("/storage/v1/bucket", func(w http.ResponseWriter, r *http.Request) {
		var b model.Bucket
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if _, ok := fs.buckets[b.ID]; ok {
			http.Error(w, `{"message":"The resource already exists"}`, http.StatusConflict)
			return
		}
		fs.buckets[b.ID] = b
		json.NewEncoder(w).Encode(map[string]string{"name": b.ID})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fs, srv
}

func TestBucketLifecycle(t *testing.T) {
	_, srv := newFakeStorage(t)
	c := NewClient(srv.URL+"/", testKey)
	ctx := context.Background()

	_, err := c.GetBucket(ctx, "product-images")
	assert.ErrorIs(t, err, ErrBucketNotFound)

	want := model.Bucket{
		Name:             "product-images",
		Public:           true,
		FileSizeLimit:    5 << 20,
		AllowedMimeTypes: []string{"image/png"},
	}
	require.NoError(t, c.CreateBucket(ctx, want))

	got, err := c.GetBucket(ctx, "product-images")
	require.NoError(t, err)
	assert.Equal(t, "product-images", got.ID)
	assert.True(t, got.Public)
	assert.Equal(t, int64(5<<20), got.FileSizeLimit)
	assert.Equal(t, []string{"image/png"}, got.AllowedMimeTypes)

	err = c.CreateBucket(ctx, want)
	assert.ErrorContains(t, err, "status 409")
}

func TestGetBucket404(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, testKey).GetBucket(context.Background(), "x")
	assert.ErrorIs(t, err, ErrBucketNotFound)
}

func TestBadKey(t *testing.T) {
	_, srv := newFakeStorage(t)

	_, err := NewClient(srv.URL, "wrong").GetBucket(context.Background(), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBucketNotFound)
	assert.ErrorContains(t, err, "status 401")
}
