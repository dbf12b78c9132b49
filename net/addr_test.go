package net

import (
	"net"
	"testing"

	"github.com/opd-ai/sockets/endpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEndPointAddr(t *testing.T) {
	tests := []struct {
		network string
		address string
		want    string
		wantNet string
		wantErr bool
	}{
		{"tcp", "127.0.0.1:80", "127.0.0.1:80", "tcp", false},
		{"tcp6", "[::1]:443", "[::1]:443", "tcp", false},
		{"udp4", "10.0.0.1:53", "10.0.0.1:53", "udp", false},
		{"tcp4", "[::1]:443", "", "", true},
		{"tcp", "localhost:80", "", "", true},
		{"ip", "127.0.0.1:80", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.network+"/"+tt.address, func(t *testing.T) {
			addr, err := ResolveEndPointAddr(tt.network, tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, addr.String())
			assert.Equal(t, tt.wantNet, addr.Network())
		})
	}
}

func TestEndPointAddrNetAddr(t *testing.T) {
	ep := endpoint.New(endpoint.Loopback, 8080)

	tcp, ok := NewEndPointAddr("tcp", ep).NetAddr().(*net.TCPAddr)
	require.True(t, ok)
	assert.Equal(t, 8080, tcp.Port)

	udp, ok := NewEndPointAddr("udp", ep).NetAddr().(*net.UDPAddr)
	require.True(t, ok)
	assert.True(t, udp.IP.IsLoopback())
}

func TestEndPointAddrEqual(t *testing.T) {
	a := NewEndPointAddr("tcp", endpoint.New(endpoint.Loopback, 1))
	b := NewEndPointAddr("tcp", endpoint.New(endpoint.Loopback, 1))
	c := NewEndPointAddr("udp", endpoint.New(endpoint.Loopback, 1))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	var nilAddr *EndPointAddr
	assert.True(t, nilAddr.Equal(nil))
	assert.Equal(t, "<nil>", nilAddr.String())
}
