// Command careerctl is a terminal client for a careerdeck server.
//
//	careerctl login -email you@example.com -password ...   prints a token
//	careerctl dashboard
//	careerctl matches [-limit N]
//	careerctl dismiss JOB_ID | applied JOB_ID
//	careerctl practice [-type quick|full|company-specific] [-company NAME]
//	careerctl slots -coach ID -date YYYY-MM-DD
//	careerctl book -coach ID -date YYYY-MM-DD -time HH:MM [-duration 60] [-type video] [-topic ...]
//	careerctl goals [add TITLE | done ID | rm ID]
//	careerctl flags
//
// CAREERDECK_URL and CAREERDECK_TOKEN are read from the environment or a
// .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/careerdeck/internal/client"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}))
	a := &app{
		baseURL: envOr("CAREERDECK_URL", "http://localhost:8080"),
		token:   os.Getenv("CAREERDECK_TOKEN"),
		in:      os.Stdin,
		out:     os.Stdout,
		logger:  logger,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

// app carries what every command needs; tests swap in and out.
type app struct {
	baseURL string
	token   string
	in      io.Reader
	out     io.Writer
	logger  *slog.Logger
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	api, err := client.New(a.baseURL, client.Options{Logger: a.logger})
	if err != nil {
		return err
	}
	session := client.NewSession(api, a.logger)

	switch cmd {
	case "login":
		return a.login(ctx, session, rest)
	case "register":
		return a.register(ctx, session, rest)
	}

	if a.token == "" {
		return errors.New("CAREERDECK_TOKEN is not set; run `careerctl login` first")
	}
	if err := session.LoginWithToken(ctx, a.token); err != nil {
		return fmt.Errorf("signing in: %w", err)
	}

	switch cmd {
	case "me":
		return a.me(session)
	case "dashboard":
		return a.dashboard(ctx, api)
	case "matches":
		return a.matches(ctx, api, rest)
	case "dismiss", "applied":
		return a.updateMatch(ctx, api, cmd, rest)
	case "practice":
		return a.practice(ctx, api, session, rest)
	case "slots":
		return a.slots(ctx, api, rest)
	case "book":
		return a.book(ctx, api, rest)
	case "goals":
		return a.goals(ctx, api, rest)
	case "flags":
		return a.flags(session)
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

var errUsage = errors.New("usage: careerctl <login|register|me|dashboard|matches|dismiss|applied|practice|slots|book|goals|flags> [flags]")

// describe turns client errors into a line a person can act on.
func describe(err error) string {
	var se *client.StatusError
	switch {
	case errors.As(err, &se) && se.Message != "":
		return se.Message
	case errors.Is(err, client.ErrNetwork):
		return "could not reach the server, check CAREERDECK_URL and try again"
	case errors.Is(err, client.ErrMalformed):
		return "the server sent a response this client does not understand"
	}
	return err.Error()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}
