package command

import (
	"errors"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Action is the canonical identifier a trigger phrase resolves to.
type Action string

const (
	ActionHelp              Action = "help"
	ActionSwitch            Action = "switch"
	ActionSearchSong        Action = "search_song"
	ActionSearchEvent       Action = "search_event"
	ActionSongChart         Action = "song_chart"
	ActionCardIllustration  Action = "card_illustration"
	ActionSearchCharacter   Action = "search_character"
	ActionSearchGacha       Action = "search_gacha"
	ActionSearchCard        Action = "search_card"
	ActionSearchPlayer      Action = "search_player"
	ActionPlayerStatus      Action = "player_status"
	ActionBindPlayer        Action = "bind_player"
	ActionSongMeta          Action = "song_meta"
	ActionRoomList          Action = "room_list"
	ActionTierAll           Action = "tier_all"
	ActionTier              Action = "tier"
	ActionTierHistory       Action = "tier_history"
	ActionGachaSimulate     Action = "gacha_simulate"
	ActionRoomForwardOn     Action = "room_forward_on"
	ActionRoomForwardOff    Action = "room_forward_off"
	ActionSetDefaultServers Action = "set_default_servers"
	ActionSetActiveServer   Action = "set_active_server"
)

var knownActions = map[Action]struct{}{
	ActionHelp: {}, ActionSwitch: {}, ActionSearchSong: {}, ActionSearchEvent: {}, ActionSongChart: {},
	ActionCardIllustration: {}, ActionSearchCharacter: {}, ActionSearchGacha: {}, ActionSearchCard: {},
	ActionSearchPlayer: {}, ActionPlayerStatus: {}, ActionBindPlayer: {}, ActionSongMeta: {},
	ActionRoomList: {}, ActionTierAll: {}, ActionTier: {}, ActionTierHistory: {}, ActionGachaSimulate: {},
	ActionRoomForwardOn: {}, ActionRoomForwardOff: {}, ActionSetDefaultServers: {}, ActionSetActiveServer: {},
}

func (a Action) Known() bool {
	_, ok := knownActions[a]
	return ok
}

// Alias binds one trigger phrase to an action.
type Alias struct {
	Trigger string `yaml:"trigger"`
	Action  Action `yaml:"action"`
}

// DefaultAliases is the built-in trigger list. Order is precedence: a trigger that has a
// shorter trigger as its prefix must come before it (查卡面/查卡池 before 查卡, ycxall before ycx).
var DefaultAliases = []Alias{
	{"swc", ActionSwitch},
	{"查曲", ActionSearchSong},
	{"查活动", ActionSearchEvent},
	{"查谱面", ActionSongChart},
	{"查铺面", ActionSongChart},
	{"查卡面", ActionCardIllustration},
	{"查角色", ActionSearchCharacter},
	{"查卡池", ActionSearchGacha},
	{"查卡", ActionSearchCard},
	{"查玩家", ActionSearchPlayer},
	{"玩家状态", ActionPlayerStatus},
	{"国服玩家状态", ActionPlayerStatus},
	{"日服玩家状态", ActionPlayerStatus},
	{"国际服玩家状态", ActionPlayerStatus},
	{"台服玩家状态", ActionPlayerStatus},
	{"韩服玩家状态", ActionPlayerStatus},
	{"绑定玩家", ActionBindPlayer},
	{"查询分数表", ActionSongMeta},
	{"查分数表", ActionSongMeta},
	{"ycm", ActionRoomList},
	{"ycxall", ActionTierAll},
	{"ycx", ActionTier},
	{"lsycx", ActionTierHistory},
	{"抽卡模拟", ActionGachaSimulate},
	{"开启个人车牌转发", ActionRoomForwardOn},
	{"关闭个人车牌转发", ActionRoomForwardOff},
	{"主服务器", ActionSetDefaultServers},
	{"国服模式", ActionSetActiveServer},
	{"日服模式", ActionSetActiveServer},
	{"国际服模式", ActionSetActiveServer},
	{"台服模式", ActionSetActiveServer},
	{"韩服模式", ActionSetActiveServer},
}

// AliasTable is the ordered, read-only trigger list shared by Router and Classifier.
type AliasTable struct {
	entries     []Alias
	helpTrigger string
}

var ErrEmptyHelpTrigger = errors.New("help trigger is empty")

// NewAliasTable puts the help trigger first, followed by entries in the given order.
func NewAliasTable(helpTrigger string, entries []Alias) (*AliasTable, error) {
	helpTrigger = strings.TrimSpace(helpTrigger)
	if helpTrigger == "" {
		return nil, ErrEmptyHelpTrigger
	}
	list := make([]Alias, 0, len(entries)+1)
	list = append(list, Alias{Trigger: helpTrigger, Action: ActionHelp})
	for i, e := range entries {
		if e.Trigger == "" {
			return nil, fmt.Errorf("alias %d: empty trigger", i)
		}
		if !e.Action.Known() {
			return nil, fmt.Errorf("alias %q: unknown action %q", e.Trigger, e.Action)
		}
		list = append(list, e)
	}
	return &AliasTable{entries: list, helpTrigger: helpTrigger}, nil
}

func (t *AliasTable) HelpTrigger() string { return t.helpTrigger }

// Entries returns a copy in precedence order.
func (t *AliasTable) Entries() []Alias {
	return append([]Alias(nil), t.entries...)
}

// Triggers lists trigger phrases in precedence order, help trigger excluded.
func (t *AliasTable) Triggers() []string {
	out := make([]string, 0, len(t.entries))
	for _, e := range t.entries[1:] {
		out = append(out, e.Trigger)
	}
	return out
}

// LoadAliases reads a YAML sequence of {trigger, action}. A mapping is rejected because
// it would lose the order.
func LoadAliases(path string) ([]Alias, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	var list []Alias
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse aliases %s: %w", path, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("aliases %s: no entries", path)
	}
	return list, nil
}
