package command

import "strings"

// Suffix words of the player-status and mode-switch trigger families.
const (
	SuffixPlayerStatus = "玩家状态"
	SuffixMode         = "模式"
)

// Resolution is the routing result for one message.
type Resolution struct {
	Action   Action
	Trigger  string
	Residual string
}

// Router maps a message to the first alias whose trigger is a prefix of it.
type Router struct {
	table    *AliasTable
	suffixes []string
}

func NewRouter(table *AliasTable) *Router {
	return &Router{table: table, suffixes: []string{SuffixPlayerStatus, SuffixMode}}
}

// Resolve walks the alias table in order; the first prefix match wins.
func (r *Router) Resolve(message string) (Resolution, bool) {
	for _, e := range r.table.entries {
		if !strings.HasPrefix(message, e.Trigger) {
			continue
		}
		return Resolution{Action: e.Action, Trigger: e.Trigger, Residual: r.residual(message, e.Trigger)}, true
	}
	return Resolution{}, false
}

// residual removes the first occurrence of the trigger. For the status/mode families only the
// suffix words are removed so a server name in front of them ("日服玩家状态") stays in the text.
func (r *Router) residual(message, trigger string) string {
	for _, suf := range r.suffixes {
		if strings.HasSuffix(trigger, suf) {
			out := message
			for _, s := range r.suffixes {
				out = strings.ReplaceAll(out, s, "")
			}
			return strings.TrimSpace(out)
		}
	}
	return strings.TrimSpace(strings.Replace(message, trigger, "", 1))
}
