package validate_test

import (
	"testing"

	"github.com/ArthurBonsu/tinc-blockchain/business/web/validate"
	"github.com/stretchr/testify/require"
)

type request struct {
	To       string `json:"to" validate:"required,eth_addr"`
	GasLimit uint64 `json:"gas_limit" validate:"gt=0"`
}

func TestCheck(t *testing.T) {
	err := validate.Check(request{To: "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32", GasLimit: 21})
	require.NoError(t, err)

	err = validate.Check(request{To: "bob"})
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(err).Fields()
	require.Len(t, fields, 2)
	require.Contains(t, fields, "to")
	require.Contains(t, fields, "gas_limit")
}
