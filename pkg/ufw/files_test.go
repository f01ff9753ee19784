package ufw

import (
	"bytes"
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFS map[string][]byte

func (m memFS) ReadFile(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return data, nil
}

func (m memFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m[name] = append([]byte(nil), data...)
	return nil
}

const defaultUfw = `# /etc/default/ufw
#

# Set to yes to apply rules to support IPv6 (no means only IPv6 on loopback
# accepted). You will need to 'disable' and then 'enable' the firewall for
# the changes to take affect.
IPV6=yes

DEFAULT_INPUT_POLICY="DROP"
`

func TestDisableIPv6(t *testing.T) {
	fsys := memFS{DefaultsFile: []byte(defaultUfw)}

	changed, err := DisableIPv6(fsys, DefaultsFile)
	require.NoError(t, err)
	assert.True(t, changed)
	content := string(fsys[DefaultsFile])
	assert.Contains(t, content, "\nIPV6=no\n")
	assert.NotContains(t, content, "IPV6=yes")
	assert.Contains(t, content, `DEFAULT_INPUT_POLICY="DROP"`)

	changed, err = DisableIPv6(fsys, DefaultsFile)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = SetIPv6(fsys, DefaultsFile, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, string(fsys[DefaultsFile]), "\nIPV6=yes\n")
}

func TestSetIPv6Errors(t *testing.T) {
	_, err := SetIPv6(memFS{}, DefaultsFile, false)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = SetIPv6(memFS{DefaultsFile: []byte("DEFAULT_INPUT_POLICY=\"DROP\"\n")}, DefaultsFile, false)
	assert.Error(t, err)
}

func TestExportImportRules(t *testing.T) {
	src := memFS{
		RulesDir + "/user.rules":  []byte("*filter\n-A ufw-user-input -p tcp --dport 22 -j ACCEPT\nCOMMIT\n"),
		RulesDir + "/user6.rules": []byte("*filter\nCOMMIT\n"),
	}
	var buf bytes.Buffer
	require.NoError(t, ExportRules(src, RulesDir, "web-1", &buf))
	assert.Contains(t, buf.String(), "source: web-1")

	dst := memFS{}
	fe := newFakeExecutor()
	require.NoError(t, ImportRules(context.Background(), NewManager(fe), dst, "/tmp/ufw", &buf))
	assert.Equal(t, src[RulesDir+"/user.rules"], dst["/tmp/ufw/user.rules"])
	assert.Equal(t, src[RulesDir+"/user6.rules"], dst["/tmp/ufw/user6.rules"])
	assert.Equal(t, []string{"ufw reload"}, fe.cmds)
}

func TestExportRulesMissing(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, ExportRules(memFS{}, RulesDir, "web-1", &buf))
}

func TestImportRulesRejectsUnknownFiles(t *testing.T) {
	bundle := "source: x\nfiles:\n  ../../etc/passwd: root\n"
	fe := newFakeExecutor()
	err := ImportRules(context.Background(), NewManager(fe), memFS{}, RulesDir, strings.NewReader(bundle))
	assert.Error(t, err)
	assert.Empty(t, fe.cmds)
}

func TestExecFS(t *testing.T) {
	fe := newFakeExecutor()
	fe.outputs["cat /etc/default/ufw"] = defaultUfw
	efs := ExecFS{Exec: fe}

	data, err := efs.ReadFile(DefaultsFile)
	require.NoError(t, err)
	assert.Equal(t, defaultUfw, string(data))

	require.NoError(t, efs.WriteFile("/etc/ufw/user.rules", []byte("COMMIT\n"), 0o640))
	assert.Equal(t, "sh -c 'echo Q09NTUlUCg== | base64 -d > /etc/ufw/user.rules && chmod 640 /etc/ufw/user.rules'", fe.cmds[1])
	assert.Equal(t, []bool{true, true}, fe.sudo)

	_, err = efs.ReadFile("/etc/ufw/user.rules; reboot")
	assert.Error(t, err)
}
