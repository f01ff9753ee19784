package ufw

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusNumbered = `Status: active

     To                         Action      From
     --                         ------      ----
[ 1] 22/tcp                     ALLOW IN    Anywhere
[ 2] 80,443/tcp                 ALLOW IN    Anywhere                   # web
[ 3] Anywhere                   DENY IN     203.0.113.7
[ 4] 8080                       ALLOW IN    10.0.0.0/8                 # temp
[ 5] 22/tcp (v6)                ALLOW IN    Anywhere (v6)
[ 6] 8080 (v6)                  ALLOW IN    Anywhere (v6)              # temp

`

// fakeExecutor 记录收到的命令, 按前缀返回预设输出
type fakeExecutor struct {
	mu       sync.Mutex
	cmds     []string
	sudo     []bool
	outputs  map[string]string
	failures map[string]error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{outputs: map[string]string{}, failures: map[string]error{}}
}

func (f *fakeExecutor) Target() string { return "fake" }

func (f *fakeExecutor) Run(ctx context.Context, cmd string) (string, error) {
	return f.record(cmd, false)
}

func (f *fakeExecutor) RunWithSudo(ctx context.Context, cmd string) (string, error) {
	return f.record(cmd, true)
}

func (f *fakeExecutor) record(cmd string, sudo bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	f.sudo = append(f.sudo, sudo)
	for prefix, err := range f.failures {
		if strings.HasPrefix(cmd, prefix) {
			return f.outputs[prefix], err
		}
	}
	for prefix, out := range f.outputs {
		if strings.HasPrefix(cmd, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func TestManagerStatus(t *testing.T) {
	fe := newFakeExecutor()
	fe.outputs["ufw status numbered"] = statusNumbered
	m := NewManager(fe)

	st, err := m.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	require.Len(t, st.Rules, 6)
	assert.Equal(t, "80,443", st.Rules[1].Port)
	assert.Equal(t, "web", st.Rules[1].Comment)
	assert.Equal(t, SourceAddress, st.Rules[2].SourceKind)
	assert.True(t, st.Rules[4].IPv6())
	assert.Equal(t, []string{"ufw status numbered"}, fe.cmds)
	assert.Equal(t, []bool{true}, fe.sudo)
}

func TestManagerInactive(t *testing.T) {
	fe := newFakeExecutor()
	fe.outputs["ufw status numbered"] = "Status: inactive\n"
	m := NewManager(fe, WithSudo(false))

	enabled, err := m.IsEnabled(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Equal(t, []bool{false}, fe.sudo)
}

func TestManagerCommandError(t *testing.T) {
	fe := newFakeExecutor()
	fe.outputs["ufw status numbered"] = "ERROR: You need to be root to run this script\n"
	m := NewManager(fe)

	_, err := m.Rules(context.Background())
	var cerr *CommandError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "ufw status numbered", cerr.Command)
	assert.Contains(t, err.Error(), "You need to be root")

	boom := errors.New("exit status 1")
	fe.failures["ufw reload"] = boom
	err = m.Reload(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestManagerSimpleCommands(t *testing.T) {
	fe := newFakeExecutor()
	m := NewManager(fe, WithBinary("/usr/sbin/ufw"))
	ctx := context.Background()

	require.NoError(t, m.Enable(ctx))
	require.NoError(t, m.Disable(ctx))
	require.NoError(t, m.Reset(ctx))
	require.NoError(t, m.ShutdownLogging(ctx))
	require.NoError(t, m.SetLogging(ctx, "Medium"))
	require.NoError(t, m.DeleteRule(ctx, 3))
	assert.Error(t, m.SetLogging(ctx, "verbose"))
	assert.ErrorIs(t, m.DeleteRule(ctx, 0), ErrNoSuchRule)

	assert.Equal(t, []string{
		"/usr/sbin/ufw --force enable",
		"/usr/sbin/ufw disable",
		"/usr/sbin/ufw --force reset",
		"/usr/sbin/ufw logging off",
		"/usr/sbin/ufw logging medium",
		"/usr/sbin/ufw --force delete 3",
	}, fe.cmds)
}

func TestManagerAllowInbound(t *testing.T) {
	fe := newFakeExecutor()
	m := NewManager(fe)
	ctx := context.Background()

	require.NoError(t, m.AllowInbound(ctx, "22", ProtocolAny))
	require.NoError(t, m.AllowInbound(ctx, "53", ProtocolUDP))
	require.NoError(t, m.AllowInbound(ctx, "6000:6007", ProtocolAny))
	require.NoError(t, m.AllowInbound(ctx, "6000:6007", ProtocolTCP))
	require.NoError(t, m.AllowInboundFrom(ctx, "10.0.0.0/8", "5432", ProtocolTCP))
	require.NoError(t, m.AllowInboundFrom(ctx, "192.168.1.5", "161", ProtocolAny))
	require.NoError(t, m.AllowService(ctx, "Nginx Full"))
	require.NoError(t, m.DenyInbound(ctx, "203.0.113.7"))

	assert.Equal(t, []string{
		"ufw allow 22",
		"ufw allow 53/udp",
		"ufw allow 6000:6007/tcp",
		"ufw allow 6000:6007/udp",
		"ufw allow 6000:6007/tcp",
		"ufw allow from 10.0.0.0/8 to any port 5432 proto tcp",
		"ufw allow from 192.168.1.5 to any port 161",
		`ufw allow "Nginx Full"`,
		"ufw deny from 203.0.113.7",
	}, fe.cmds)
}

func TestManagerRejectsBadInput(t *testing.T) {
	fe := newFakeExecutor()
	m := NewManager(fe)
	ctx := context.Background()

	assert.ErrorIs(t, m.AllowInbound(ctx, "22; rm -rf /", ProtocolAny), ErrInvalidPort)
	assert.ErrorIs(t, m.AllowInboundFrom(ctx, "not-an-ip", "22", ProtocolTCP), ErrInvalidAddress)
	assert.ErrorIs(t, m.AllowInboundFrom(ctx, "10.0.0.1", "", ProtocolTCP), ErrInvalidPort)
	assert.ErrorIs(t, m.DenyInbound(ctx, "10.0.0.0/33"), ErrInvalidAddress)
	assert.Error(t, m.AllowService(ctx, "$(reboot)"))
	assert.Empty(t, fe.cmds)
}

func TestManagerDeleteMatching(t *testing.T) {
	fe := newFakeExecutor()
	fe.outputs["ufw status numbered"] = statusNumbered
	m := NewManager(fe)

	deleted, err := m.DeleteMatching(context.Background(), func(r Rule) bool {
		return r.HasComment && r.Comment == "temp"
	})
	require.NoError(t, err)
	require.Len(t, deleted, 2)
	assert.Equal(t, 6, deleted[0].Index)
	assert.Equal(t, 4, deleted[1].Index)
	assert.Equal(t, []string{
		"ufw status numbered",
		"ufw --force delete 6",
		"ufw --force delete 4",
	}, fe.cmds)
}

func TestManagerDefaults(t *testing.T) {
	fe := newFakeExecutor()
	fe.outputs["ufw status verbose"] = `Status: active
Logging: on (low)
Default: deny (incoming), allow (outgoing), disabled (routed)
New profiles: skip
`
	d, err := NewManager(fe).Defaults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults{Incoming: "deny", Outgoing: "allow", Routed: "disabled", Logging: "on (low)"}, d)
}

func TestManagerApps(t *testing.T) {
	fe := newFakeExecutor()
	fe.outputs["ufw app list"] = "Available applications:\n  Nginx Full\n  OpenSSH\n"
	fe.outputs["ufw app info"] = `Profile: Nginx Full
Title: Web Server (Nginx, HTTP + HTTPS)
Description: Small, but very powerful and efficient web server

Ports:
  80,443/tcp
`
	m := NewManager(fe)
	ctx := context.Background()

	apps, err := m.Apps(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nginx Full", "OpenSSH"}, apps)

	info, err := m.AppInfo(ctx, "Nginx Full")
	require.NoError(t, err)
	assert.Equal(t, "Nginx Full", info.Name)
	assert.Equal(t, "Web Server (Nginx, HTTP + HTTPS)", info.Title)
	assert.Equal(t, []string{"80,443/tcp"}, info.Ports)
}

func TestPreflight(t *testing.T) {
	exec := newFakeExecutor()
	exec.outputs["command -v ufw"] = "/usr/sbin/ufw\n"
	exec.failures["systemctl is-active --quiet nftables"] = errors.New("exit status 3")
	exec.failures["systemctl is-active --quiet iptables"] = errors.New("exit status 3")
	m := NewManager(exec)

	p, err := m.Preflight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/usr/sbin/ufw", p.Binary)
	assert.Equal(t, []string{"firewalld"}, p.Conflicts)

	missing := newFakeExecutor()
	missing.failures["command -v ufw"] = errors.New("exit status 1")
	_, err = NewManager(missing).Preflight(context.Background())
	assert.ErrorIs(t, err, ErrNotInstalled)
}
