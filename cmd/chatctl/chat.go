package main

import (
	"bufio"
	"chat-presence/auth"
	"chat-presence/client"
	"chat-presence/domain"
	"chat-presence/domain/mimetypes"
	"chat-presence/errors"
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <counterpart>",
		Short: "Open an interactive conversation",
		Long: "Open an interactive conversation. Every line is sent as a message.\n" +
			"Commands: /image <path>, /remove, /who, /quit.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			if config.Token == "" {
				return fmt.Errorf("CHAT_TOKEN is required")
			}
			self, err := auth.PeekUser(config.Token)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return chat(ctx, config, self, domain.UserID(args[0]), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	return cmd
}

// printer is the notifier for messages from conversations that aren't open.
type printer struct {
	out io.Writer
}

func (p printer) Notify(m domain.Message) {
	fmt.Fprintln(p.out, color.Yellow.Sprintf("[new message from %s]", m.SenderID))
}

func chat(ctx context.Context, config Config, self domain.AuthUser, counterpart domain.UserID, in io.Reader, out io.Writer) error {
	log := logs.GetLoggerFromString(config.LogLevel)
	session, err := client.Dial(ctx, log, config.ServerURL, config.Token)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sessionErr := make(chan error, 1)
	go func() { sessionErr <- session.Run(ctx) }()

	clk := clock.New()
	debouncer := client.NewTypingDebouncer(clk, self.ID, config.TypingWindow, func(state client.TypingState, label string) {
		if state == client.ShowingTyping {
			fmt.Fprintln(out, color.Gray.Sprint(label))
		}
	})
	coordinator := client.NewCoordinator(log, self,
		client.NewHTTPStore(config.ServerURL, config.Token, nil), session, debouncer,
		client.NewTypingEmitter(clk, session, self, config.TypingThrottle),
		printer{out: out})
	defer coordinator.Shutdown()

	unsubscribe := session.OnNewMessage(func(m domain.Message) {
		if m.SenderID == counterpart {
			fmt.Fprintf(out, "%s %s\n", color.Cyan.Sprintf("%s:", m.SenderID), describe(m))
		}
	})
	defer unsubscribe()
	session.OnRoster(func(r domain.Roster) {
		state := color.Red.Sprint("offline")
		if r.Contains(counterpart) {
			state = color.Green.Sprint("online")
		}
		fmt.Fprintf(out, "%s is %s (%d online)\n", counterpart, state, len(r))
	})

	if err := coordinator.Open(ctx, counterpart); err != nil {
		return err
	}
	for _, m := range coordinator.Messages() {
		fmt.Fprintf(out, "%s %s\n", color.Gray.Sprintf("%s:", m.SenderID), describe(m))
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sessionErr:
			return fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, coordinator, session.Roster, line, out); quit {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, coordinator *client.Coordinator, roster func() domain.Roster, line string, out io.Writer) bool {
	command, argument, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch command {
	case "/quit":
		return true
	case "/who":
		fmt.Fprintln(out, "online:", roster())
		return false
	case "/remove":
		coordinator.RemoveImage()
		return false
	case "/image":
		data, err := os.ReadFile(argument)
		if err != nil {
			fmt.Fprintln(out, color.Red.Sprint(err))
			return false
		}
		if err := coordinator.AttachImage(filepath.Base(argument), string(mimetypes.Detect(data)), data); err != nil {
			fmt.Fprintln(out, color.Red.Sprint(err))
			return false
		}
		fmt.Fprintln(out, color.Gray.Sprintf("attached %s, type a caption or an empty line to send", filepath.Base(argument)))
		return false
	}

	coordinator.SetText(ctx, line)
	if _, err := coordinator.Send(ctx); err != nil {
		switch {
		case goerrors.Is(err, errors.ErrValidation):
			fmt.Fprintln(out, color.Yellow.Sprint(err))
		default:
			fmt.Fprintln(out, color.Red.Sprintf("not sent, kept for retry: %v", err))
		}
	}
	return false
}

func describe(m domain.Message) string {
	text := m.Text
	if m.Image != "" {
		text = strings.TrimSpace(text + " [image]")
	}
	return text
}
