package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/tnunamak/usagemeter/internal/host"
)

func init() {
	keyring.MockInit()
}

func TestKeyringStore(t *testing.T) {
	ks := host.NewKeyringStore()

	_, err := ks.Get("usagemeter-test", "acct")
	assert.ErrorIs(t, err, host.ErrSecretNotFound)

	require.NoError(t, ks.Set("usagemeter-test", "acct", `{"token":"t"}`))
	v, err := ks.Get("usagemeter-test", "acct")
	require.NoError(t, err)
	assert.Equal(t, `{"token":"t"}`, v)

	require.NoError(t, ks.Delete("usagemeter-test", "acct"))
	assert.ErrorIs(t, ks.Delete("usagemeter-test", "acct"), host.ErrSecretNotFound)
}
