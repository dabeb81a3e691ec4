package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/Tsugu-KakaoTalk-bot/internal/bot"
	appcfg "github.com/park285/Tsugu-KakaoTalk-bot/internal/config"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/room"
	"github.com/park285/Tsugu-KakaoTalk-bot/internal/tsugubuilder"
	"github.com/park285/Tsugu-KakaoTalk-bot/pkg/tsugudto"
)

var askCmd = &cobra.Command{
	Use:   "ask <message...>",
	Short: "Send one chat message through the bot and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, d *tsugubuilder.Deps) error {
			reply, err := d.Bot.Handle(ctx, bot.Inbound{Text: strings.Join(args, " "), UserID: flagUser, GroupID: flagGroup})
			if err != nil {
				return err
			}
			return printReply(cmd.OutOrStdout(), reply)
		})
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Query the live room list (feed merged with local submissions)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, d *tsugubuilder.Deps) error {
			entries, err := d.Aggregator.Query(ctx)
			if err != nil {
				return err
			}
			records := room.Export(entries)
			out := cmd.OutOrStdout()
			if flagJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "no rooms")
				return nil
			}
			now := time.Now().UnixMilli()
			for _, r := range records {
				fmt.Fprintf(out, "%d  %-10s %3ds  %s\n", r.Number, r.Source, (now-r.Time)/1000, oneLine(r.RawMessage))
			}
			return nil
		})
	},
}

var prefCmd = &cobra.Command{
	Use:   "pref [user-id]",
	Short: "Show a user's stored preferences (created with defaults when missing)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := flagUser
		if len(args) == 1 {
			userID = args[0]
		}
		return withDeps(cmd.Context(), func(ctx context.Context, d *tsugubuilder.Deps) error {
			p, err := d.Prefs.Get(ctx, userID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		})
	},
}

func withDeps(parent context.Context, fn func(context.Context, *tsugubuilder.Deps) error) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := appcfg.Load()
	if err != nil {
		return err
	}
	if err := obslog.InitFromEnv(); err != nil {
		return err
	}
	defer obslog.Sync()

	ctx, cancel := context.WithTimeout(parent, cfg.HTTPTimeout+30*time.Second)
	defer cancel()
	d, err := tsugubuilder.New(ctx, cfg, obslog.L())
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(ctx, d)
}

func printReply(w io.Writer, reply []tsugudto.Element) error {
	if flagJSON {
		return json.NewEncoder(w).Encode(reply)
	}
	if reply == nil {
		fmt.Fprintln(w, "(no reply)")
		return nil
	}
	for _, el := range reply {
		switch el.Type {
		case tsugudto.ElementString:
			fmt.Fprintln(w, el.String)
		case tsugudto.ElementBase64:
			raw := strings.TrimPrefix(el.String, "base64://")
			n := base64.StdEncoding.DecodedLen(len(raw))
			fmt.Fprintf(w, "[image ~%d bytes]\n", n)
		default:
			fmt.Fprintf(w, "[%s element]\n", el.Type)
		}
	}
	return nil
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > 40 {
		return string(r[:40]) + "…"
	}
	return s
}
