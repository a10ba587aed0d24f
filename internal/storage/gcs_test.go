package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type stubClientFactory struct {
	client *gcs.Client
	err    error
}

func (f *stubClientFactory) NewClient(context.Context) (*gcs.Client, error) {
	return f.client, f.err
}

func newStubGCSClient(t *testing.T, handler http.HandlerFunc) *gcs.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gcs.NewClient(
		context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestNewGCSProviderVerifiesBucket(t *testing.T) {
	t.Parallel()

	client := newStubGCSClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/b/harvest-datasets")
		_, _ = io.WriteString(w, `{"name":"harvest-datasets"}`)
	})

	provider, err := NewGCSProvider(context.Background(), "harvest-datasets", &stubClientFactory{client: client})
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestNewGCSProviderRequiresBucketName(t *testing.T) {
	t.Parallel()

	_, err := NewGCSProvider(context.Background(), "", &stubClientFactory{})
	require.Error(t, err)
}

func TestNewGCSProviderClientError(t *testing.T) {
	t.Parallel()

	factory := &stubClientFactory{err: fmt.Errorf("no credentials")}
	_, err := NewGCSProvider(context.Background(), "bucket", factory)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create GCS client")
}

func TestNewGCSProviderBucketAttrsError(t *testing.T) {
	t.Parallel()

	client := newStubGCSClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := NewGCSProvider(context.Background(), "missing-bucket", &stubClientFactory{client: client})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attributes")
}

func TestNoOpProviderSave(t *testing.T) {
	t.Parallel()

	require.NoError(t, NoOpProvider{}.Save(context.Background(), "anything", nil))
}
