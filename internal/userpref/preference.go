// Package userpref owns per-user server preferences and the room-forward opt-in.
package userpref

import (
	"context"
	"errors"
	"strings"
)

var (
	// DefaultServers is the list a new user starts with: CN first, then JP.
	DefaultServers = []string{"3", "0"}

	ErrEmptyUserID = errors.New("user id is empty")
)

const DefaultActiveServer = "3"

// Preference is one user's record. Server ids are the decimal strings "0".."4".
type Preference struct {
	UserID       string   `json:"user_id"`
	Servers      []string `json:"servers"`
	ActiveServer string   `json:"active_server"`
	RoomForward  bool     `json:"room_forward"`
}

func Default(userID string) Preference {
	return Preference{
		UserID:       userID,
		Servers:      append([]string(nil), DefaultServers...),
		ActiveServer: DefaultActiveServer,
		RoomForward:  true,
	}
}

func (p Preference) clone() Preference {
	p.Servers = append([]string(nil), p.Servers...)
	return p
}

// Update is one of SetDefaultServers, SetActiveServer or SetForward.
type Update interface {
	apply(p *Preference)
}

// SetDefaultServers replaces the server list, or with Prepend puts Servers in front of the
// current list. Duplicates are removed keeping the first occurrence.
type SetDefaultServers struct {
	Servers []string
	Prepend bool
}

func (u SetDefaultServers) apply(p *Preference) {
	list := append([]string(nil), u.Servers...)
	if u.Prepend {
		list = append(list, p.Servers...)
	}
	p.Servers = dedupe(list)
}

type SetActiveServer struct {
	Server string
}

func (u SetActiveServer) apply(p *Preference) { p.ActiveServer = u.Server }

type SetForward struct {
	Enabled bool
}

func (u SetForward) apply(p *Preference) { p.RoomForward = u.Enabled }

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Store persists preferences. Load reports found=false for an unknown user.
//
// Modify is the only write path: it loads the record (seed when the user is unknown), runs fn
// on it and saves the result as one step that no other writer of the same user can interleave
// with, including writers in other processes sharing the store. created is true when the
// record did not exist before. A nil fn just makes sure the record exists.
type Store interface {
	Load(ctx context.Context, userID string) (pref Preference, found bool, err error)
	Modify(ctx context.Context, userID string, seed Preference, fn func(*Preference)) (pref Preference, created bool, err error)
}

// ErrConflict is returned when an optimistic store keeps losing to concurrent writers.
var ErrConflict = errors.New("preference update conflict")
