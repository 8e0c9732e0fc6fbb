package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactFetcherRetriesUntilPublished(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mainnet/rewards_41.json" {
			http.NotFound(w, r)
			return
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"0x00000000000000000000000000000000000000a1":{"Uni-V3 A/B LP":"1500"}}`))
	}))
	defer srv.Close()

	f, err := NewArtifactFetcher(ArtifactConfig{BaseURL: srv.URL + "/", Network: "mainnet", MaxRetries: 3, RetryBackoff: time.Millisecond}, nil)
	require.NoError(t, err)

	l, err := f.Fetch(context.Background(), 41)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	amount := l.Get(common.HexToAddress("0xa1"), "Uni-V3 A/B LP")
	require.NotNil(t, amount)
	assert.Equal(t, uint64(1500), amount.Uint64())
}

func TestArtifactFetcherGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f, err := NewArtifactFetcher(ArtifactConfig{BaseURL: srv.URL, Network: "polygon", MaxRetries: 2, RetryBackoff: time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, srv.URL+"/polygon/rewards_7.json", f.URL(7))
}

func TestArtifactFetcherStopsOnForbidden(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	f, err := NewArtifactFetcher(ArtifactConfig{BaseURL: srv.URL, Network: "mainnet", MaxRetries: 4, RetryBackoff: time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
