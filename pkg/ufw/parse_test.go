package ufw

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, line string) Rule {
	t.Helper()
	r, ok := ParseRule(line)
	require.True(t, ok, "expected a rule from %q", line)
	return r
}

func TestParseRuleAction(t *testing.T) {
	cases := map[string]Action{
		"[ 5] 1245/tcp                   ALLOW IN    15.59.22.255      ":   ActionAllowIn,
		"[15] 1245/tcp                   DENY OUT    15.59.22.255      ":   ActionDenyOut,
		"[ 1] Anywhere                   DENY IN     175.111.212.145 ":     ActionDenyIn,
		"[ 8] 33 (v6)                ALLOW IN    Anywhere (v6) ":           ActionAllowIn,
		"[ 2] 22                         ALLOW       Anywhere":             ActionAllow,
		"[ 3] 53                         ALLOW OUT   Anywhere (out)":       ActionAllowOut,
		"[ 4] 25                         DENY        10.0.0.0/8":           ActionDeny,
		"[ 9] 80/tcp                     LIMIT IN    Anywhere":             ActionUnknown,
	}
	for line, want := range cases {
		assert.Equal(t, want, mustParse(t, line).Action, line)
	}
}

func TestParseRuleIndex(t *testing.T) {
	cases := map[string]int{
		"[ 5] 8852/tcp                   ALLOW IN    15.59.22.255      ":           5,
		"[15] 663/tcp       [ g ]            ALLOW IN    15.59.22.255      ":       15,
		"[1 ] 6631/tcp  [                 ALLOW IN    175.111.212.145      ":      1,
		"[ 8] 33 (v6)                ALLOW IN    Anywhere (v6) ":                   8,
		"[  7] 443/tcp                   ALLOW IN    Anywhere":                     7,
		"[120] 443/tcp                   ALLOW IN    Anywhere":                     120,
	}
	for line, want := range cases {
		assert.Equal(t, want, mustParse(t, line).Index, line)
	}
}

func TestParseRulePortAndProtocol(t *testing.T) {
	cases := []struct {
		line  string
		port  string
		proto Protocol
	}{
		{"[ 2] 80/tcp                     ALLOW IN    Anywhere             ", "80", ProtocolTCP},
		{"[ 5] 7440/udp                   ALLOW IN    112.112.227.15       ", "7440", ProtocolUDP},
		{"[ 7] 311                       ALLOW IN    59.119.22.22     ", "311", ProtocolAny},
		{"[ 7] Anywhere                       ALLOW IN    121.219.12.118     ", "", ProtocolAny},
		{"[ 8] 22/tcp (v6)                ALLOW IN    Anywhere (v6) ", "22", ProtocolTCP},
		{"[ 8] 33 (v6)                ALLOW IN    Anywhere (v6) ", "33", ProtocolAny},
		{"[ 3] 6000:6007/tcp              ALLOW IN    Anywhere", "6000:6007", ProtocolTCP},
		{"[ 4] 80,443/tcp                 ALLOW IN    Anywhere", "80,443", ProtocolTCP},
		{"[ 6] OpenSSH                    ALLOW IN    Anywhere", "OpenSSH", ProtocolAny},
		{"[ 9] 22/tcp on eth0             ALLOW IN    Anywhere", "22", ProtocolTCP},
		{"[10] 50/esp                     ALLOW IN    Anywhere", "50", ProtocolAny},
		{"[11] anywhere                   DENY IN     10.1.1.1", "", ProtocolAny},
	}
	for _, tc := range cases {
		r := mustParse(t, tc.line)
		assert.Equal(t, tc.port, r.Port, tc.line)
		assert.Equal(t, tc.proto, r.Protocol, tc.line)
	}
}

func TestParseRuleSource(t *testing.T) {
	cases := []struct {
		line   string
		source string
		kind   SourceKind
	}{
		{"[ 2] 80/tcp                     ALLOW IN    Anywhere             ", "Anywhere", SourceAnywhere},
		{"[ 5] 1222/udp                   ALLOW IN    11.1.12.1       ", "11.1.12.1", SourceAddress},
		{"[ 7] 1222                       ALLOW IN    119.1.2.2     ", "119.1.2.2", SourceAddress},
		{"[ 8] 22/tcp (v6)                ALLOW IN    Anywhere (v6) ", "Anywhere (v6)", SourceAnywhere},
		{"[ 9] 22/tcp (v6)                ALLOW IN    2001:db8::/32 (v6)", "2001:db8::/32 (v6)", SourceAddress},
		{"[10] 22                         DENY IN     192.168.0.0/16", "192.168.0.0/16", SourceAddress},
	}
	for _, tc := range cases {
		r := mustParse(t, tc.line)
		assert.Equal(t, tc.source, r.Source, tc.line)
		assert.Equal(t, tc.kind, r.SourceKind, tc.line)
	}
}

func TestParseRuleComment(t *testing.T) {
	r := mustParse(t, "[ 3] 443/tcp                    ALLOW IN    Anywhere                   # web  frontend")
	assert.True(t, r.HasComment)
	assert.Equal(t, "web  frontend", r.Comment)

	r = mustParse(t, "[ 3] 443/tcp                    ALLOW IN    Anywhere")
	assert.False(t, r.HasComment)
	assert.Empty(t, r.Comment)
}

func TestParseRuleScenarios(t *testing.T) {
	r := mustParse(t, "[ 5] 1245/tcp   ALLOW IN   15.59.22.255")
	assert.Equal(t, Rule{
		Index: 5, Action: ActionAllowIn, Port: "1245", Protocol: ProtocolTCP,
		Source: "15.59.22.255", SourceKind: SourceAddress,
	}, r)

	r = mustParse(t, "[15] 1245/tcp   DENY OUT   15.59.22.255")
	assert.Equal(t, 15, r.Index)
	assert.Equal(t, ActionDenyOut, r.Action)

	r = mustParse(t, "[ 1] Anywhere   DENY IN   175.111.212.145")
	assert.Equal(t, "", r.Port)
	assert.Equal(t, ProtocolAny, r.Protocol)
	assert.Equal(t, ActionDenyIn, r.Action)

	r = mustParse(t, "[ 8] 33 (v6)   ALLOW IN   Anywhere (v6)")
	assert.Equal(t, 8, r.Index)
	assert.Equal(t, "33", r.Port)
	assert.Equal(t, ProtocolAny, r.Protocol)
	assert.Equal(t, "Anywhere (v6)", r.Source)
	assert.Equal(t, SourceAnywhere, r.SourceKind)
	assert.True(t, r.IPv6())

	r = mustParse(t, "[ 8] 22/tcp (v6)   ALLOW IN   Anywhere (v6)")
	assert.Equal(t, "22", r.Port)
	assert.Equal(t, ProtocolTCP, r.Protocol)
}

func TestParseRuleRejects(t *testing.T) {
	lines := []string{
		"",
		"   ",
		"Status: active",
		"     To                         Action      From",
		"     --                         ------      ----",
		"22/tcp                     ALLOW IN    Anywhere",
		"[ x] 22/tcp                ALLOW IN    Anywhere",
		"[ 5 22/tcp                 ALLOW IN    Anywhere",
		"[] 22/tcp                  ALLOW IN    Anywhere",
		"[-3] 22/tcp                ALLOW IN    Anywhere",
		"[ 5]",
		"[ 5] 22/tcp",
		"[ 5] 22/tcp                ALLOW IN",
		"[ 5] 22/tcp ALLOW IN Anywhere",
	}
	for _, line := range lines {
		_, ok := ParseRule(line)
		assert.False(t, ok, "%q", line)
	}
}

func TestCollapsePaddingIdempotent(t *testing.T) {
	lines := []string{
		"[ 5] 1245/tcp                   ALLOW IN    15.59.22.255",
		"[ 8] 33 (v6)  ALLOW IN  Anywhere (v6)",
		"a b  c",
	}
	for _, line := range lines {
		once := collapsePadding(line)
		assert.NotContains(t, once, "   ")
		assert.Equal(t, once, collapsePadding(once))
	}
	assert.Equal(t, []string{"33 (v6)", "ALLOW IN", "Anywhere (v6)"}, normalizeColumns("33 (v6)      ALLOW IN   Anywhere (v6)"))
}

func TestParseRulePortProtocolRoundTrip(t *testing.T) {
	for _, port := range []string{"1", "22", "8080", "65535"} {
		for _, proto := range []Protocol{ProtocolTCP, ProtocolUDP} {
			r := mustParse(t, "[ 1] "+port+"/"+proto.String()+"   ALLOW IN   Anywhere")
			assert.Equal(t, port, r.Port)
			assert.Equal(t, proto, r.Protocol)
			assert.Equal(t, port+"/"+proto.String(), r.Target())
		}
		r := mustParse(t, "[ 1] "+port+"   ALLOW IN   Anywhere")
		assert.Equal(t, port, r.Port)
		assert.Equal(t, ProtocolAny, r.Protocol)
	}
}

func TestParseLinesKeepsOrder(t *testing.T) {
	out := `Status: active

     To                         Action      From
     --                         ------      ----
[ 1] 22/tcp                     ALLOW IN    Anywhere
[ 2] 80/tcp                     ALLOW IN    Anywhere
[ 3] Anywhere                   DENY IN     10.0.0.1
[ 4] 22/tcp (v6)                ALLOW IN    Anywhere (v6)
`
	rules, err := ParseLines(context.Background(), strings.Split(out, "\n"))
	require.NoError(t, err)
	require.Len(t, rules, 4)
	for i, r := range rules {
		assert.Equal(t, i+1, r.Index)
	}
	assert.Equal(t, "10.0.0.1", rules[2].Source)
}

func TestParseLinesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ParseLines(ctx, []string{"[ 1] 22/tcp   ALLOW IN   Anywhere"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRuleString(t *testing.T) {
	r := mustParse(t, "[ 3] 443/tcp                    ALLOW IN    Anywhere                   # web")
	assert.Equal(t, "[ 3] 443/tcp  ALLOW IN  Anywhere  # web", r.String())
	assert.Equal(t, "UNKNOWN", ActionUnknown.String())
}
