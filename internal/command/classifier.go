package command

import (
	"regexp"
	"strings"
)

// DefaultCarKeywords mark a message as a room announcement.
var DefaultCarKeywords = []string{
	"车", "w", "W", "国", "日", "火", "q", "开", "Q", "万", "缺", "来", "差", "奇迹", "冲", "途", "分", "禁",
}

// DefaultFakeKeywords veto a room announcement even when a car keyword is present.
var DefaultFakeKeywords = []string{
	"114514", "假车", "测试", "野兽", "恶臭", "1919", "下北泽", "粪", "糞", "臭", "雀魂", "麻将", "打牌", "maj", "麻",
	"[", "]", "断幺", "11451", "xiabeize", "qq.com", "@", "q0", "q5", "q6", "q7", "q8", "q9", "q10",
	"腾讯会议", "master", "疯狂星期四", "离开了我们", "日元", "av", "bv",
}

var roomNumberPattern = regexp.MustCompile(`^\d{5}(\D|$)|^\d{6}(\D|$)`)

type Kind int

const (
	KindNone Kind = iota
	KindRoom
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindRoom:
		return "room"
	case KindCommand:
		return "command"
	default:
		return "none"
	}
}

type Classifier struct {
	table *AliasTable
	car   []string
	fake  []string
}

func NewClassifier(table *AliasTable, car, fake []string) *Classifier {
	if car == nil {
		car = DefaultCarKeywords
	}
	if fake == nil {
		fake = DefaultFakeKeywords
	}
	return &Classifier{table: table, car: car, fake: fake}
}

// IsRoom needs a car keyword, no fake keyword and a leading 5 or 6 digit room number.
func (c *Classifier) IsRoom(message string) bool {
	room := containsAny(message, c.car)
	if containsAny(message, c.fake) {
		room = false
	}
	if !roomNumberPattern.MatchString(message) {
		room = false
	}
	return room
}

// IsCommand reports whether the message opens with any trigger, help trigger included.
func (c *Classifier) IsCommand(message string) bool {
	for _, e := range c.table.entries {
		if strings.HasPrefix(message, e.Trigger) {
			return true
		}
	}
	return false
}

// Classify prefers the room reading. Callers that gate rooms on user opt-in should use
// IsRoom and IsCommand separately.
func (c *Classifier) Classify(message string) Kind {
	switch {
	case c.IsRoom(message):
		return KindRoom
	case c.IsCommand(message):
		return KindCommand
	default:
		return KindNone
	}
}

// RoomNumber extracts the room number from a message that passed IsRoom:
// the first six characters when they are all digits, otherwise the first five.
func RoomNumber(message string) string {
	runes := []rune(message)
	if len(runes) >= 6 && allDigits(runes[:6]) {
		return string(runes[:6])
	}
	if len(runes) >= 5 && allDigits(runes[:5]) {
		return string(runes[:5])
	}
	return ""
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func allDigits(rs []rune) bool {
	for _, r := range rs {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
