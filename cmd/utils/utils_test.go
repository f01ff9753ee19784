package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddr(t *testing.T) {
	cases := []struct {
		in         string
		user, host string
		port       uint16
	}{
		{"root@10.0.0.1:2222", "root", "10.0.0.1", 2222},
		{"ops@web-1", "ops", "web-1", 0},
		{"10.0.0.1", "", "10.0.0.1", 0},
		{"db:22", "", "db", 22},
		{"admin@[2001:db8::1]:22", "admin", "2001:db8::1", 22},
		{"web:notaport", "", "web", 0},
	}
	for _, c := range cases {
		u, h, p := ParseAddr(c.in)
		assert.Equal(t, c.user, u, c.in)
		assert.Equal(t, c.host, h, c.in)
		assert.Equal(t, c.port, p, c.in)
	}
}

func TestKeyPathFor(t *testing.T) {
	assert.Equal(t, "/etc/ufwctl/key", KeyPathFor("/etc/ufwctl/config.yaml"))
}
