// Package region maps game servers between their numeric ids, locale codes and Chinese names.
package region

import (
	"strconv"
	"strings"
)

type Server int

const (
	JP Server = 0
	EN Server = 1
	TW Server = 2
	CN Server = 3
	KR Server = 4
)

type naming struct {
	server Server
	code   string
	name   string
}

// Scan order matters: locale codes are tried before Chinese names, each in this order.
var names = []naming{
	{JP, "jp", "日服"},
	{EN, "en", "国际服"},
	{TW, "tw", "台服"},
	{CN, "cn", "国服"},
	{KR, "kr", "韩服"},
}

func (s Server) Code() string {
	for _, n := range names {
		if n.server == s {
			return n.code
		}
	}
	return ""
}

func (s Server) Name() string {
	for _, n := range names {
		if n.server == s {
			return n.name
		}
	}
	return ""
}

// ID is the decimal string form stored in user preferences ("3" for CN).
func (s Server) ID() string { return strconv.Itoa(int(s)) }

func (s Server) Valid() bool { return s.Code() != "" }

// Parse reads a preference-style id ("0".."4").
func Parse(id string) (Server, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return 0, false
	}
	s := Server(n)
	return s, s.Valid()
}

// Find returns the first server whose locale code or Chinese name appears anywhere in text.
// Codes are substring-matched, so "jp" inside a longer token still counts.
func Find(text string) (Server, bool) {
	for _, n := range names {
		if strings.Contains(text, n.code) {
			return n.server, true
		}
	}
	for _, n := range names {
		if strings.Contains(text, n.name) {
			return n.server, true
		}
	}
	return 0, false
}

// FindAll resolves each whitespace-separated token independently, keeping token order.
func FindAll(text string) []Server {
	var out []Server
	for _, tok := range strings.Fields(text) {
		if s, ok := Find(tok); ok {
			out = append(out, s)
		}
	}
	return out
}

// IsToken reports whether tok names a server on its own.
func IsToken(tok string) bool {
	for _, n := range names {
		if tok == n.code || tok == n.name {
			return true
		}
	}
	return false
}

func IDs(servers []Server) []string {
	out := make([]string, 0, len(servers))
	for _, s := range servers {
		out = append(out, s.ID())
	}
	return out
}

// JoinNames renders servers as "国服, 日服".
func JoinNames(servers []Server) string {
	parts := make([]string, 0, len(servers))
	for _, s := range servers {
		parts = append(parts, s.Name())
	}
	return strings.Join(parts, ", ")
}
