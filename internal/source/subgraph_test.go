package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incentiveScope/internal/model"
)

var testPool = common.HexToAddress("0x00000000000000000000000000000000000000aa")

type capturedRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func decodeRequest(r *http.Request) (capturedRequest, error) {
	var req capturedRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

func TestFetchSwapsSortsByTimestamp(t *testing.T) {
	var got capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got = req
		fmt.Fprint(w, `{"data":{"swaps":[
			{"id":"0xb","timestamp":"1209700","amountUSD":"900.5","tick":"-12","transaction":{"blockNumber":"120"}},
			{"id":"0xa","timestamp":"1209650","amountUSD":"300","tick":"40","transaction":{"blockNumber":"110"}}
		]}}`)
	}))
	defer srv.Close()

	sg, err := NewSubgraph(SubgraphConfig{URL: srv.URL, MinUSD: 50, MaxSwaps: 2}, nil)
	require.NoError(t, err)

	ep := model.Epoch{ChainID: 1, Pool: testPool, Week: 2}
	swaps, err := sg.FetchSwaps(context.Background(), ep)
	require.NoError(t, err)
	require.Len(t, swaps, 2)

	assert.Equal(t, "0xa", swaps[0].ID)
	assert.Equal(t, int32(40), swaps[0].Tick)
	assert.Equal(t, uint64(110), swaps[0].BlockNumber)
	assert.Equal(t, int32(-12), swaps[1].Tick)
	assert.InDelta(t, 900.5, swaps[1].AmountUSD, 1e-9)

	assert.Contains(t, got.Query, "timestamp_gte")
	assert.Equal(t, strings.ToLower(testPool.Hex()), got.Variables["pool"])
	assert.Equal(t, "1209600", got.Variables["start"])
	assert.Equal(t, "1814400", got.Variables["end"])
	assert.Equal(t, "50", got.Variables["minUSD"])
	assert.EqualValues(t, 2, got.Variables["first"])
}

func TestFetchSwapsGraphErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"errors":[{"message":"indexing error"}]}`)
	}))
	defer srv.Close()

	sg, err := NewSubgraph(SubgraphConfig{URL: srv.URL, MaxRetries: 3, RetryBackoff: time.Millisecond}, nil)
	require.NoError(t, err)
	_, err = sg.FetchSwaps(context.Background(), model.Epoch{Pool: testPool, Week: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexing error")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSubgraphClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	sg, err := NewSubgraph(SubgraphConfig{URL: srv.URL, MaxRetries: 3, RetryBackoff: time.Millisecond}, nil)
	require.NoError(t, err)
	_, err = sg.FetchPositionIDs(context.Background(), testPool)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchSwapsNullData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":null}`)
	}))
	defer srv.Close()

	sg, err := NewSubgraph(SubgraphConfig{URL: srv.URL}, nil)
	require.NoError(t, err)
	_, err = sg.FetchSwaps(context.Background(), model.Epoch{Pool: testPool, Week: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data")
}

func TestFetchPositionIDsPages(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		atomic.AddInt32(&calls, 1)
		skip := int(req.Variables["skip"].(float64))

		n := positionPageSize
		if skip >= positionPageSize {
			n = 3
		}
		rows := make([]string, 0, n)
		for i := 0; i < n; i++ {
			// The short second page repeats ids from the first.
			rows = append(rows, fmt.Sprintf(`{"position":{"id":"%d"}}`, (skip+i)%(positionPageSize+1)))
		}
		fmt.Fprintf(w, `{"data":{"positionSnapshots":[%s]}}`, strings.Join(rows, ","))
	}))
	defer srv.Close()

	sg, err := NewSubgraph(SubgraphConfig{URL: srv.URL}, nil)
	require.NoError(t, err)
	ids, err := sg.FetchPositionIDs(context.Background(), testPool)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Len(t, ids, positionPageSize+1)
	assert.Equal(t, int64(0), ids[0].Int64())
	assert.Equal(t, int64(positionPageSize), ids[positionPageSize].Int64())
}

func TestSubgraphRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"data":{"positionSnapshots":[{"position":{"id":"7"}}]}}`)
	}))
	defer srv.Close()

	sg, err := NewSubgraph(SubgraphConfig{URL: srv.URL, MaxRetries: 2, RetryBackoff: time.Millisecond}, nil)
	require.NoError(t, err)
	ids, err := sg.FetchPositionIDs(context.Background(), testPool)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, int64(7), ids[0].Int64())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewSubgraphRequiresURL(t *testing.T) {
	_, err := NewSubgraph(SubgraphConfig{}, nil)
	assert.Error(t, err)
}

func TestNewSubgraphCapsMaxSwaps(t *testing.T) {
	_, err := NewSubgraph(SubgraphConfig{URL: "http://localhost", MaxSwaps: MaxSwapsLimit + 1}, nil)
	assert.Error(t, err)

	sg, err := NewSubgraph(SubgraphConfig{URL: "http://localhost"}, nil)
	require.NoError(t, err)
	assert.Equal(t, MaxSwapsLimit, sg.cfg.MaxSwaps)
}
