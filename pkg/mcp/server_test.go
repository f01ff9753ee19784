package mcp

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wentf9/ufwctl/pkg/ufw"
)

const numbered = `Status: active

     To                         Action      From
     --                         ------      ----
[ 1] 22/tcp                     ALLOW IN    Anywhere
[ 2] 80                         DENY IN     10.0.0.5                   # scanner
`

type recordingExec struct {
	mu   sync.Mutex
	cmds []string
}

func (e *recordingExec) Target() string { return "test-node" }

func (e *recordingExec) Run(ctx context.Context, cmd string) (string, error) {
	return e.RunWithSudo(ctx, cmd)
}

func (e *recordingExec) RunWithSudo(_ context.Context, cmd string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cmds = append(e.cmds, cmd)
	if strings.HasSuffix(cmd, "status numbered") {
		return numbered, nil
	}
	return "Rule added\n", nil
}

func connect(t *testing.T, exec *recordingExec) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewServer(ufw.NewManager(exec), "test")
	ct, st := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListTools(t *testing.T) {
	cs := connect(t, &recordingExec{})
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"ufw_status", "ufw_list_rules", "ufw_allow", "ufw_deny", "ufw_delete_rule"}, names)
}

func TestStatusAndList(t *testing.T) {
	cs := connect(t, &recordingExec{})

	res := call(t, cs, "ufw_status", map[string]any{})
	assert.False(t, res.IsError)
	out := text(t, res)
	assert.Contains(t, out, `"enabled": true`)
	assert.Contains(t, out, `"DENY IN"`)

	lines := strings.Split(text(t, call(t, cs, "ufw_list_rules", map[string]any{})), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "# scanner")
}

func TestModifyingTools(t *testing.T) {
	exec := &recordingExec{}
	cs := connect(t, exec)

	assert.False(t, call(t, cs, "ufw_allow", map[string]any{"port": "443", "protocol": "tcp"}).IsError)
	assert.False(t, call(t, cs, "ufw_allow", map[string]any{"port": "5432", "from": "10.0.0.0/8"}).IsError)
	assert.False(t, call(t, cs, "ufw_deny", map[string]any{"from": "203.0.113.9"}).IsError)
	assert.False(t, call(t, cs, "ufw_delete_rule", map[string]any{"index": 2}).IsError)

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Equal(t, []string{
		"ufw allow 443/tcp",
		"ufw allow from 10.0.0.0/8 to any port 5432",
		"ufw deny from 203.0.113.9",
		"ufw --force delete 2",
	}, exec.cmds)
}

func TestToolErrors(t *testing.T) {
	exec := &recordingExec{}
	cs := connect(t, exec)

	assert.True(t, call(t, cs, "ufw_allow", map[string]any{"port": "80; rm -rf /"}).IsError)
	assert.True(t, call(t, cs, "ufw_allow", map[string]any{"port": "80", "protocol": "icmp"}).IsError)
	assert.True(t, call(t, cs, "ufw_deny", map[string]any{"from": "not-an-ip"}).IsError)
	assert.True(t, call(t, cs, "ufw_delete_rule", map[string]any{"index": 0}).IsError)
	assert.Empty(t, exec.cmds)
}
