package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTunnelInterface(t *testing.T) {
	for _, name := range []string{"tun0", "utun3", "wg0", "WARP", "ppp1"} {
		assert.True(t, IsTunnelInterface(name), name)
	}
	for _, name := range []string{"eth0", "en0", "wlan0", "lo"} {
		assert.False(t, IsTunnelInterface(name), name)
	}
}

func TestIsCGNAT(t *testing.T) {
	assert.True(t, IsCGNAT(net.ParseIP("100.64.0.1")))
	assert.True(t, IsCGNAT(net.ParseIP("100.127.255.254")))
	assert.False(t, IsCGNAT(net.ParseIP("100.128.0.1")))
	assert.False(t, IsCGNAT(net.ParseIP("192.168.1.10")))
	assert.False(t, IsCGNAT(nil))
}

func TestAddrIP(t *testing.T) {
	ip := net.ParseIP("100.64.1.1")
	assert.Equal(t, ip, addrIP(&net.IPNet{IP: ip}))
	assert.Equal(t, ip, addrIP(&net.IPAddr{IP: ip}))
	assert.Nil(t, addrIP(&net.TCPAddr{IP: ip}))
}
