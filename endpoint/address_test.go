package endpoint

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressFamilyString(t *testing.T) {
	tests := []struct {
		family AddressFamily
		want   string
	}{
		{Unspecified, "Unspecified"},
		{InterNetwork, "InterNetwork"},
		{InterNetworkV6, "InterNetworkV6"},
		{AddressFamily(99), "AddressFamily(99)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.family.String())
	}
	assert.True(t, InterNetwork.IsSupported())
	assert.False(t, Unspecified.IsSupported())
}

func TestWellKnownAddresses(t *testing.T) {
	assert.Equal(t, "0.0.0.0", Any.String())
	assert.Equal(t, "127.0.0.1", Loopback.String())
	assert.Equal(t, "255.255.255.255", Broadcast.String())
	assert.Equal(t, "::", IPv6Any.String())
	assert.Equal(t, "::1", IPv6Loopback.String())
	assert.True(t, Loopback.IsLoopback())
	assert.True(t, IPv6Loopback.IsLoopback())
	assert.False(t, Any.IsLoopback())
}

func TestParse(t *testing.T) {
	a, err := Parse("127.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, InterNetwork, a.Family())
	assert.True(t, a.IsLoopback())

	mapped, err := Parse("::ffff:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, InterNetwork, mapped.Family(), "mapped addresses become IPv4")

	_, ok := TryParse("not-an-ip")
	assert.False(t, ok)
}

func TestScopeID(t *testing.T) {
	_, err := Loopback.ScopeID()
	assert.ErrorIs(t, err, ErrNoScope)
	_, err = Loopback.WithScopeID(1)
	assert.ErrorIs(t, err, ErrNoScope)

	scoped, err := IPv6Loopback.WithScopeID(4)
	require.NoError(t, err)
	id, err := scoped.ScopeID()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), id)
	assert.Equal(t, "::1%4", scoped.String())
	assert.False(t, scoped.Equal(IPv6Loopback))
}

func TestFromIP(t *testing.T) {
	a, err := FromIP(net.ParseIP("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, InterNetwork, a.Family())

	_, err = FromIP(net.IP{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
