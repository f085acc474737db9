package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RichardoC/quanta/internal/chat"
	"github.com/RichardoC/quanta/internal/config"
	"github.com/RichardoC/quanta/internal/relay"
	"github.com/RichardoC/quanta/internal/store"
	"github.com/RichardoC/quanta/internal/view"
	"github.com/ergochat/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type chatOptions struct {
	relayURL string
	dbPath   string
	timeout  time.Duration
	html     bool
	verbose  bool
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat (default command)",
		Long: `Start an interactive chat.

Type a message and press Enter to send it. Commands:
  /new   start a new chat
  /quit  exit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.relayURL, "relay", "", "relay server URL (default $QUANTA_RELAY_URL)")
	cmd.Flags().StringVar(&opts.dbPath, "db", defaultDBPath(), "conversation database file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "reply timeout")
	cmd.Flags().BoolVar(&opts.html, "html", false, "print rendered HTML instead of plain text")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	return cmd
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "quanta.db"
	}
	return filepath.Join(home, ".quanta", "chat.db")
}

// openLocalStore opens the client's own SQLite file. REDIS_ADDR belongs to
// the server: sharing its slot would let two controllers overwrite each
// other's conversation.
func openLocalStore(ctx context.Context, dbPath string, logger *zap.Logger) (store.Slot, func(), error) {
	return store.Open(ctx, store.Options{DBPath: dbPath}, logger)
}

func runChat(cmd *cobra.Command, opts *chatOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	relayURL := opts.relayURL
	if relayURL == "" {
		relayURL = cfg.RelayURL
	}

	logger := zap.NewNop()
	if opts.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(opts.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	slot, closeSlot, err := openLocalStore(ctx, opts.dbPath, logger)
	if err != nil {
		return err
	}
	defer closeSlot()

	controller := chat.New(ctx, store.New(slot), relay.NewClient(relayURL, opts.timeout), chat.Options{
		Logger:  logger,
		Timeout: opts.timeout,
	})
	defer controller.Close()

	out := cmd.OutOrStdout()
	p := &printer{w: out, html: opts.html}
	p.load(controller.Snapshot())
	unsubscribe := controller.Subscribe(p.event)
	defer unsubscribe()

	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(line) {
		case "/quit", "/exit":
			return nil
		case "/new":
			if err := controller.Reset(ctx); err != nil {
				return err
			}
			continue
		}

		ex, ok := controller.Submit(controller.SetDraft(line))
		if !ok {
			continue
		}
		if _, err := ex.Wait(ctx); err != nil {
			return err
		}
	}
}

// printer writes the chat timeline to the terminal as it changes.
type printer struct {
	w        io.Writer
	html     bool
	timeline view.Timeline
}

func (p *printer) load(snap chat.Snapshot) {
	p.timeline = view.FromSnapshot(snap)
	for _, b := range p.timeline.Bubbles {
		p.bubble(b)
	}
}

// event applies ev to the timeline and prints what changed. Only the
// controller's worker calls it after load.
func (p *printer) event(ev chat.Event) {
	prev := p.timeline
	p.timeline = view.Apply(prev, ev)

	shown := len(prev.Bubbles)
	if ev.Kind == chat.EventReset {
		fmt.Fprintln(p.w, "--- new chat ---")
		shown = 0
	}
	for _, b := range p.timeline.Bubbles[shown:] {
		p.bubble(b)
	}
	if p.timeline.Typing && !prev.Typing {
		fmt.Fprintln(p.w, "Quanta is typing…")
	}
}

func (p *printer) bubble(b view.Bubble) {
	if p.html {
		fmt.Fprintf(p.w, "<div class=\"message %s\"><div class=\"msg-avatar\">%s</div><div class=\"bubble\">%s</div></div>\n", b.Role, b.Avatar, b.HTML)
		return
	}
	fmt.Fprintf(p.w, "[%s] %s\n", b.Avatar, b.Content)
}
