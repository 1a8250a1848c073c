package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/config"
)

func TestNewExportStoreDisabled(t *testing.T) {
	store, err := NewExportStore(context.Background(), config.ExportStorage{Bucket: "exports"})
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestPutUploadsAndPresigns(t *testing.T) {
	var mu sync.Mutex
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotMethod, gotPath, gotBody = r.Method, r.URL.Path, string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewExportStore(context.Background(), config.ExportStorage{
		Endpoint:       srv.URL,
		AccessKey:      "key",
		SecretKey:      "secret",
		Bucket:         "rental",
		Region:         "auto",
		Prefix:         "exports",
		PresignMinutes: 5,
	})
	require.NoError(t, err)
	require.NotNil(t, store)

	key := store.Key(42, "payments_20250310_113000.csv")
	assert.Equal(t, "exports/owner-42/payments_20250310_113000.csv", key)

	before := time.Now()
	url, expires, err := store.Put(context.Background(), key, []byte("a,b\n1,2\n"), "text/csv")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/rental/"+key, gotPath)
	assert.Contains(t, gotBody, "a,b")

	assert.Contains(t, url, srv.URL+"/rental/"+key)
	assert.Contains(t, url, "X-Amz-Expires=300")
	assert.WithinDuration(t, before.Add(5*time.Minute), expires, 5*time.Second)
}

func TestKeyWithoutPrefix(t *testing.T) {
	s := &ExportStore{}
	assert.Equal(t, "owner-7/tenants.csv", s.Key(7, "tenants.csv"))
}
