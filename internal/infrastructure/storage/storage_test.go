package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
	"github.com/portal/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorageConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "portal-documents",
		Region:       "us-east-1",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     endpoint,
		UsePathStyle: true,
	}
}

func fixedClock() time.Time {
	return time.UnixMilli(1700000000123)
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		folder string
		file   string
		want   string
	}{
		{"plain name", "invoices/u1/r1", "factura.xml", "invoices/u1/r1/1700000000123-factura.xml"},
		{"spaces and accents", "invoices/u1/r1", "mi factura ñ.pdf", "invoices/u1/r1/1700000000123-mi_factura__.pdf"},
		{"trailing slash", "invoices/", "a-b_c.xml", "invoices/1700000000123-a-b_c.xml"},
		{"path separators", "invoices", "../etc/passwd", "invoices/1700000000123-.._etc_passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.folder, tt.file, fixedClock()))
		})
	}
}

func TestCleanKey(t *testing.T) {
	assert.Equal(t, "invoices/u/1-a.xml", CleanKey("invoices/u/1-a.xml"))
	assert.Equal(t, "invoices/u/1-a.xml", CleanKey("https://bucket.s3.amazonaws.com/invoices/u/1-a.xml"))
	assert.Equal(t, "", CleanKey(""))
}

func TestNewS3DocumentStore_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3DocumentStore(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := testStorageConfig("")
		cfg.Bucket = ""
		_, err := NewS3DocumentStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half configured credentials return error", func(t *testing.T) {
		cfg := testStorageConfig("")
		cfg.SecretKey = ""
		_, err := NewS3DocumentStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "set together")
	})

	t.Run("valid config creates store", func(t *testing.T) {
		store, err := NewS3DocumentStore(testStorageConfig("localhost:9000"))
		require.NoError(t, err)
		assert.Equal(t, "portal-documents", store.Bucket())
	})
}

func TestS3DocumentStore_Presign(t *testing.T) {
	store, err := NewS3DocumentStore(testStorageConfig("http://localhost:9000"))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("signs a GET for the key with the requested ttl", func(t *testing.T) {
		u := store.Presign(ctx, "invoices/u1/r1/1-factura.xml", 24*time.Hour)
		require.NotEmpty(t, u)
		assert.Contains(t, u, "/portal-documents/invoices/u1/r1/1-factura.xml")
		assert.Contains(t, u, "X-Amz-Expires=86400")
	})

	t.Run("legacy url keys are cleaned", func(t *testing.T) {
		u := store.Presign(ctx, "https://old.example.com/invoices/u1/r1/1-factura.pdf", time.Hour)
		assert.Contains(t, u, "/portal-documents/invoices/u1/r1/1-factura.pdf")
		assert.Contains(t, u, "X-Amz-Expires=3600")
	})

	t.Run("empty key yields empty url", func(t *testing.T) {
		assert.Empty(t, store.Presign(ctx, "", time.Hour))
	})
}

func TestS3DocumentStore_Put(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPath  string
		gotType  string
		gotBytes int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if strings.Contains(r.URL.Path, "denied") {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBytes = len(body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewS3DocumentStore(testStorageConfig(srv.URL), WithClock(fixedClock))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("uploads under the folder and returns the key", func(t *testing.T) {
		key, err := store.Put(ctx, invoicingapp.File{
			Name:        "factura 1.xml",
			ContentType: "text/xml",
			Data:        []byte("<cfdi/>"),
		}, "invoices/u1/r1")
		require.NoError(t, err)
		assert.Equal(t, "invoices/u1/r1/1700000000123-factura_1.xml", key)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "/portal-documents/invoices/u1/r1/1700000000123-factura_1.xml", gotPath)
		assert.Equal(t, "text/xml", gotType)
		assert.Positive(t, gotBytes)
	})

	t.Run("rejected upload returns error", func(t *testing.T) {
		_, err := store.Put(ctx, invoicingapp.File{Name: "x.pdf", Data: []byte("%PDF")}, "denied")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "x.pdf")
	})

	t.Run("empty file is rejected before upload", func(t *testing.T) {
		_, err := store.Put(ctx, invoicingapp.File{Name: "empty.xml"}, "invoices")
		assert.ErrorIs(t, err, ErrEmptyFile)
	})
}

func TestMemoryDocumentStore(t *testing.T) {
	store := NewMemoryDocumentStore()
	store.now = fixedClock
	ctx := context.Background()

	k1, err := store.Put(ctx, invoicingapp.File{Name: "a.xml", Data: []byte("1")}, "invoices")
	require.NoError(t, err)
	k2, err := store.Put(ctx, invoicingapp.File{Name: "a.xml", Data: []byte("2")}, "invoices")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, 2, store.Len())

	f, ok := store.Get(k2)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), f.Data)

	assert.Contains(t, store.Presign(ctx, k1, time.Hour), "/"+k1+"?expires=")
	assert.Empty(t, store.Presign(ctx, "invoices/missing.xml", time.Hour))

	require.NoError(t, store.Delete(ctx, k1))
	require.NoError(t, store.Delete(ctx, k1))
	_, ok = store.Get(k1)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())

	store.FailPut = true
	_, err = store.Put(ctx, invoicingapp.File{Name: "b.xml", Data: []byte("3")}, "invoices")
	assert.Error(t, err)
}

func TestS3DocumentStore_Delete(t *testing.T) {
	var (
		mu      sync.Mutex
		deleted []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if strings.Contains(r.URL.Path, "denied") {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
			return
		}
		mu.Lock()
		deleted = append(deleted, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store, err := NewS3DocumentStore(testStorageConfig(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "invoices/u1/r1/1-factura.xml"))
	require.NoError(t, store.Delete(ctx, "https://old.example.com/invoices/u1/r1/1-factura.pdf"))
	require.NoError(t, store.Delete(ctx, ""))

	err = store.Delete(ctx, "denied/1-factura.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied/1-factura.xml")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/portal-documents/invoices/u1/r1/1-factura.xml",
		"/portal-documents/invoices/u1/r1/1-factura.pdf",
	}, deleted)
}
