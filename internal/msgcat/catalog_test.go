package msgcat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedDefaults(t *testing.T) {
	c := MustDefault()

	out, err := c.Render(HelpKey("swc"), map[string]string{"BotName": "tsugu"})
	require.NoError(t, err)
	require.Equal(t, "swc off tsugu ·关闭本群Tsugu\nswc on tsugu ·开启本群Tsugu", out)

	require.True(t, c.Has(HelpKey("查卡面")))
	require.False(t, c.Has(HelpKey("没有")))
	require.Equal(t, "myc", c.Text("reply.no_rooms", nil))
}

func TestRenderMissingData(t *testing.T) {
	c := MustDefault()
	_, err := c.Render("reply.servers_changed", map[string]string{})
	require.Error(t, err)
	_, err = c.Render("reply.nope", nil)
	require.Error(t, err)
	require.Equal(t, "reply.nope", c.Text("reply.nope", nil))
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("reply:\n  no_rooms: \"没有车\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))

	c, err := New(dir)
	require.NoError(t, err)
	require.Equal(t, "没有车", c.Text("reply.no_rooms", nil))
	require.Equal(t, "权限不足", c.Text("reply.permission_denied", nil))
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("reply:\n  no_rooms: a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("reply:\n  no_rooms: b\n"), 0o644))

	_, err := New(dir)
	require.Error(t, err)
}

func TestNonStringLeafRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("reply:\n  count: 3\n"), 0o644))
	_, err := New(dir)
	require.Error(t, err)
}

func TestBrokenTemplateFailsAtLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("reply:\n  no_rooms: \"{{.Oops\"\n"), 0o644))
	_, err := New(dir)
	require.Error(t, err)
}
