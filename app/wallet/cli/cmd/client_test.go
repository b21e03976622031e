package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestNextNonce(t *testing.T) {
	known := common.HexToAddress("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/accounts/" + known.Hex():
			w.Write([]byte(`{"nonce":7}`))
		case "/v1/accounts/" + common.Address{}.Hex():
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad address"}`))
		}
	}))
	defer srv.Close()

	url = srv.URL
	nonce = -1

	n, err := nextNonce(known)
	require.NoError(t, err)
	require.Equal(t, uint64(7), n)

	n, err = nextNonce(common.Address{})
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)

	_, err = nextNonce(common.Address{1})
	require.EqualError(t, err, "status 400: bad address")

	nonce = 3
	n, err = nextNonce(known)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
}
