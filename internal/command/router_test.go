package command

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newDefaultTable(t *testing.T) *AliasTable {
	t.Helper()
	table, err := NewAliasTable("help", DefaultAliases)
	require.NoError(t, err)
	return table
}

func TestResolveFirstPrefixWins(t *testing.T) {
	r := NewRouter(newDefaultTable(t))

	cases := []struct {
		msg      string
		action   Action
		residual string
	}{
		{"查卡面 1234", ActionCardIllustration, "1234"},
		{"查卡池 200", ActionSearchGacha, "200"},
		{"查卡 ksm", ActionSearchCard, "ksm"},
		{"ycxall 100", ActionTierAll, "100"},
		{"ycx 1000 200", ActionTier, "1000 200"},
		{"lsycx 1000", ActionTierHistory, "1000"},
		{"查分数表 jp", ActionSongMeta, "jp"},
		{"help 查曲", ActionHelp, "查曲"},
		{"ycm", ActionRoomList, ""},
	}
	for _, c := range cases {
		res, ok := r.Resolve(c.msg)
		require.True(t, ok, c.msg)
		require.Equal(t, c.action, res.Action, c.msg)
		require.Equal(t, c.residual, res.Residual, c.msg)
	}
}

func TestResolveReorderChangesWinner(t *testing.T) {
	shadowed, err := NewAliasTable("help", []Alias{
		{"查卡", ActionSearchCard},
		{"查卡面", ActionCardIllustration},
	})
	require.NoError(t, err)

	res, ok := NewRouter(shadowed).Resolve("查卡面 1234")
	require.True(t, ok)
	require.Equal(t, ActionSearchCard, res.Action)
	require.Equal(t, "面 1234", res.Residual)
}

func TestResolveRemovesFirstOccurrenceOnly(t *testing.T) {
	r := NewRouter(newDefaultTable(t))
	res, ok := r.Resolve("查曲 查曲之歌")
	require.True(t, ok)
	require.Equal(t, "查曲之歌", res.Residual)
}

func TestResolveStatusAndModeKeepServerHint(t *testing.T) {
	r := NewRouter(newDefaultTable(t))

	res, ok := r.Resolve("日服玩家状态")
	require.True(t, ok)
	require.Equal(t, ActionPlayerStatus, res.Action)
	require.Equal(t, "日服", res.Residual)

	res, ok = r.Resolve("玩家状态 kr")
	require.True(t, ok)
	require.Equal(t, ActionPlayerStatus, res.Action)
	require.Equal(t, "kr", res.Residual)

	res, ok = r.Resolve("国际服模式")
	require.True(t, ok)
	require.Equal(t, ActionSetActiveServer, res.Action)
	require.Equal(t, "国际服", res.Residual)
}

func TestResolveSuffixWordsInOtherCommandsAreKept(t *testing.T) {
	r := NewRouter(newDefaultTable(t))
	res, ok := r.Resolve("查曲 模式")
	require.True(t, ok)
	require.Equal(t, ActionSearchSong, res.Action)
	require.Equal(t, "模式", res.Residual)
}

func TestResolveNoMatch(t *testing.T) {
	r := NewRouter(newDefaultTable(t))
	_, ok := r.Resolve("今天天气不错")
	require.False(t, ok)
	_, ok = r.Resolve(" 查曲")
	require.False(t, ok)
}

func TestNewAliasTableValidation(t *testing.T) {
	_, err := NewAliasTable("", DefaultAliases)
	require.ErrorIs(t, err, ErrEmptyHelpTrigger)

	_, err = NewAliasTable("help", []Alias{{"x", "nope"}})
	require.Error(t, err)

	table, err := NewAliasTable("帮助", []Alias{{"查曲", ActionSearchSong}})
	require.NoError(t, err)
	require.Equal(t, "帮助", table.HelpTrigger())
	require.Equal(t, []string{"查曲"}, table.Triggers())
	require.Equal(t, ActionHelp, table.Entries()[0].Action)
}

func TestLoadAliasesKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	body := "- trigger: 查卡面\n  action: card_illustration\n- trigger: 查卡\n  action: search_card\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	list, err := LoadAliases(path)
	require.NoError(t, err)
	require.Equal(t, []Alias{{"查卡面", ActionCardIllustration}, {"查卡", ActionSearchCard}}, list)

	mapping := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(mapping, []byte("查卡: search_card\n"), 0o644))
	_, err = LoadAliases(mapping)
	require.Error(t, err)
}
