package proof

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

func fastProver(url string, retries uint64) *HTTPProver {
	p := NewHTTPProver(url, time.Second, retries)
	p.backoff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return p
}

func TestHTTPProverRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prove" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Artifact{Proof: "0xabc", PublicInputs: []string{body["minScore"]}})
	}))
	defer srv.Close()

	art, err := fastProver(srv.URL, 3).Prove(context.Background(), Witness{Score: 500, MinScore: 300})
	require.NoError(t, err)
	require.Equal(t, "0xabc", art.Proof)
	require.Equal(t, []string{"300"}, art.PublicInputs)
	require.Equal(t, int32(2), hits.Load())
}

func TestHTTPProverDoesNotRetryRejection(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := fastProver(srv.URL, 3).Prove(context.Background(), Witness{Score: 100, MinScore: 300})
	require.Error(t, err)
	require.Equal(t, int32(1), hits.Load())
}

func TestHTTPProverGivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := fastProver(srv.URL, 2).Prove(context.Background(), Witness{Score: 500, MinScore: 300})
	require.Error(t, err)
	require.Equal(t, int32(3), hits.Load())
}

func TestDevProver(t *testing.T) {
	art, err := DevProver{}.Prove(context.Background(), Witness{Score: 500, MinScore: 300})
	require.NoError(t, err)
	require.Len(t, art.Proof, 2+128)
	require.Len(t, art.PublicInputs, 1)
	require.Equal(t, "0x000000000000000000000000000000000000000000000000000000000000012c", art.PublicInputs[0])

	_, err = DevProver{}.Prove(context.Background(), Witness{Score: 299, MinScore: 300})
	require.ErrorIs(t, err, ErrUnsatisfiedWitness)
}
