package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/careerdeck/internal/booking"
	"github.com/sakif/careerdeck/internal/client"
	"github.com/sakif/careerdeck/internal/matchfeed"
	"github.com/sakif/careerdeck/internal/model"
	"github.com/sakif/careerdeck/internal/practice"
)

// tipsFlag shows question tips during practice when on for the member.
const tipsFlag = "practice_tips"

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func (a *app) login(ctx context.Context, s *client.Session, args []string) error {
	fs := newFlagSet("login", a.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := s.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s.\nexport CAREERDECK_TOKEN=%s\n", s.Profile().Login, s.API().Token())
	return nil
}

func (a *app) register(ctx context.Context, s *client.Session, args []string) error {
	fs := newFlagSet("register", a.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	login := fs.String("login", "", "display name (defaults to the email's mailbox)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := s.Register(ctx, *email, *password, *login); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s.\nexport CAREERDECK_TOKEN=%s\n", s.Profile().Login, s.API().Token())
	return nil
}

func (a *app) me(s *client.Session) error {
	p := s.Profile()
	fmt.Fprintf(a.out, "%s <%s>  %s  (%s)\n", p.Login, p.Email, p.BadgeLabel, p.Role)
	return nil
}

// dashboard loads the feed, goals and bookings in parallel. The loads are
// independent: a failed section is reported in place and the others still
// render.
func (a *app) dashboard(ctx context.Context, api *client.Client) error {
	feed := matchfeed.New(api, a.logger)
	goals := api.Goals(a.logger)
	var (
		sessions                       []model.CoachingSession
		feedErr, goalsErr, sessionsErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		feedErr = feed.Load(ctx, 5)
		return feedErr
	})
	g.Go(func() error {
		goalsErr = goals.Load(ctx)
		return goalsErr
	})
	g.Go(func() error {
		sessions, sessionsErr = api.CoachingSessions(ctx)
		return sessionsErr
	})
	err := g.Wait()

	fmt.Fprintln(a.out, "Top matches")
	if feedErr != nil {
		a.unavailable(feedErr)
	} else {
		a.printMatches(feed)
	}

	fmt.Fprintln(a.out, "\nGoals")
	if goalsErr != nil {
		a.unavailable(goalsErr)
	}
	for _, goal := range goals.Items() {
		fmt.Fprintf(a.out, "  %-40s %3d%%  %s\n", goal.Title, goal.Progress, goal.Status)
	}

	fmt.Fprintln(a.out, "\nCoaching")
	if sessionsErr != nil {
		a.unavailable(sessionsErr)
		return err
	}
	upcoming := 0
	for _, cs := range sessions {
		if cs.Status != model.CoachingScheduled {
			continue
		}
		upcoming++
		fmt.Fprintf(a.out, "  %s %s  %d min %s with %s\n", cs.Date, cs.Time, cs.Duration, cs.Type, cs.CoachID)
	}
	if upcoming == 0 {
		fmt.Fprintln(a.out, "  nothing booked")
	}
	return err
}

func (a *app) unavailable(err error) {
	fmt.Fprintf(a.out, "  unavailable: %s\n", describe(err))
}

func (a *app) matches(ctx context.Context, api *client.Client, args []string) error {
	fs := newFlagSet("matches", a.out)
	limit := fs.Int("limit", 20, "how many matches to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	feed := matchfeed.New(api, a.logger)
	if err := feed.Load(ctx, *limit); err != nil {
		return err
	}
	a.printMatches(feed)
	return nil
}

func (a *app) printMatches(feed *matchfeed.Feed) {
	if feed.State() == matchfeed.Empty {
		fmt.Fprintln(a.out, "  No matches yet.")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, m := range feed.Matches() {
		posted := ""
		if !m.Job.PostedAt.IsZero() {
			posted = humanize.Time(m.Job.PostedAt)
		}
		fmt.Fprintf(tw, "  %s\t%d%% %s\t%s\t%s\t%s\n",
			m.Job.ID, m.MatchScore, matchfeed.TierFor(m.MatchScore).Label(), m.Job.Title, m.Job.Company, posted)
	}
	tw.Flush()
}

// updateMatch acts on one job by ID. It goes straight to the API rather than
// through a feed so jobs ranked past the first page still work.
func (a *app) updateMatch(ctx context.Context, api *client.Client, cmd string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: careerctl %s JOB_ID", cmd)
	}
	var err error
	if cmd == "dismiss" {
		err = api.DismissMatch(ctx, args[0])
	} else {
		err = api.MarkApplied(ctx, args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s\n", cmd, args[0])
	return nil
}

// practice runs a session on the terminal. Each line is the answer to the
// current question; ":prev" goes back and ":quit" abandons the session.
func (a *app) practice(ctx context.Context, api *client.Client, s *client.Session, args []string) error {
	fs := newFlagSet("practice", a.out)
	kind := fs.String("type", string(model.SessionQuick), "quick, full or company-specific")
	company := fs.String("company", "", "company for company-specific sessions")
	count := fs.Int("questions", 0, "number of questions (0 uses the type's default)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := model.ParseSessionType(*kind)
	if err != nil {
		return err
	}

	p := practice.New(api, a.logger)
	defer p.Close()
	if err := p.Start(ctx, practice.StartOptions{Type: st, Company: *company, QuestionCount: *count}); err != nil {
		return err
	}
	p.RunTimer(ctx)
	showTips := s.Enabled(tipsFlag)

	sc := bufio.NewScanner(a.in)
	for p.Phase() != practice.Completed {
		snap := p.Snapshot()
		fmt.Fprintf(a.out, "\n[%d/%d] %s  (%s left)\n", snap.Index+1, snap.Total, snap.Question.Text, clock(snap.Remaining))
		if showTips {
			for _, tip := range snap.Question.Tips {
				fmt.Fprintf(a.out, "  tip: %s\n", tip)
			}
		}
		if snap.Answer != "" {
			fmt.Fprintf(a.out, "  saved draft: %s\n", snap.Answer)
		}
		fmt.Fprint(a.out, "> ")

		if !sc.Scan() {
			return errors.New("input ended before the session finished; nothing was scored")
		}
		line := sc.Text()
		switch strings.TrimSpace(line) {
		case ":prev":
			if err := p.Previous(); err != nil {
				return err
			}
			continue
		case ":quit":
			fmt.Fprintln(a.out, "Session discarded.")
			return nil
		}
		if strings.TrimSpace(line) != "" {
			if err := p.SetAnswer(line); err != nil {
				return err
			}
		}
		if err := p.Next(ctx); err != nil {
			if errors.Is(err, practice.ErrClosed) || ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(a.out, "  could not save: %s (press enter to retry)\n", describe(err))
		}
	}

	fb := p.Feedback()
	fmt.Fprintf(a.out, "\nOverall score: %d%%\n", fb.OverallScore)
	for _, line := range fb.Strengths {
		fmt.Fprintf(a.out, "  + %s\n", line)
	}
	for _, line := range fb.Improvements {
		fmt.Fprintf(a.out, "  - %s\n", line)
	}
	return nil
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func (a *app) slots(ctx context.Context, api *client.Client, args []string) error {
	fs := newFlagSet("slots", a.out)
	coach := fs.String("coach", "", "coach id")
	date := fs.String("date", "", "day to check, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	flow := booking.New(api, a.logger)
	if err := flow.LoadAvailability(ctx, *coach, *date); err != nil {
		return err
	}
	snap := flow.Snapshot()
	fmt.Fprintf(a.out, "%s on %s (offers %s)\n", snap.Coach.Name, snap.Date, joinMedia(snap.Coach.SessionTypes))
	open := 0
	for _, slot := range snap.Slots {
		if slot.Available {
			open++
			fmt.Fprintf(a.out, "  %s\n", slot.Time)
		}
	}
	if open == 0 {
		fmt.Fprintln(a.out, "  fully booked")
	}
	return nil
}

func (a *app) book(ctx context.Context, api *client.Client, args []string) error {
	fs := newFlagSet("book", a.out)
	coach := fs.String("coach", "", "coach id")
	date := fs.String("date", "", "YYYY-MM-DD")
	at := fs.String("time", "", "start time, HH:MM")
	duration := fs.Int("duration", booking.DefaultDuration, "30, 60 or 90 minutes")
	medium := fs.String("type", "", "video, audio or chat (defaults to the coach's first)")
	topic := fs.String("topic", "", "what you want to work on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow := booking.New(api, a.logger)
	if err := flow.LoadAvailability(ctx, *coach, *date); err != nil {
		return err
	}
	if err := flow.SelectSlot(*at); err != nil {
		return err
	}
	if err := flow.SetDuration(*duration); err != nil {
		return err
	}
	if *medium != "" {
		m, err := model.ParseSessionMedium(*medium)
		if err != nil {
			return err
		}
		if err := flow.SetType(m); err != nil {
			return err
		}
	}
	cs, err := flow.Book(ctx, *topic)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Booked %s: %s %s, %d min %s session.\n", cs.ID, cs.Date, cs.Time, cs.Duration, cs.Type)
	return nil
}

func joinMedia(ms []model.SessionMedium) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}

func (a *app) goals(ctx context.Context, api *client.Client, args []string) error {
	store := api.Goals(a.logger)
	if err := store.Load(ctx); err != nil {
		return err
	}

	if len(args) > 0 {
		var err error
		switch args[0] {
		case "add":
			_, err = store.Create(ctx, model.CareerGoal{Title: strings.Join(args[1:], " ")})
		case "done":
			err = a.completeGoal(ctx, store, args[1:])
		case "rm":
			if len(args) != 2 {
				return errors.New("usage: careerctl goals rm ID")
			}
			err = store.Delete(ctx, args[1])
		default:
			return fmt.Errorf("unknown goals action %q", args[0])
		}
		if err != nil {
			return err
		}
	}

	for _, g := range store.Items() {
		fmt.Fprintf(a.out, "  %s  %-40s %3d%%  %s\n", g.ID, g.Title, g.Progress, g.Status)
	}
	return nil
}

type goalStore interface {
	Items() []model.CareerGoal
	Update(ctx context.Context, key string, item model.CareerGoal) (model.CareerGoal, error)
}

func (a *app) completeGoal(ctx context.Context, store goalStore, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: careerctl goals done ID")
	}
	for _, g := range store.Items() {
		if g.ID == args[0] {
			g.Progress = 100
			g.Status = model.GoalCompleted
			_, err := store.Update(ctx, g.ID, g)
			return err
		}
	}
	return fmt.Errorf("no goal %s", args[0])
}

func (a *app) flags(s *client.Session) error {
	flags := s.Flags()
	if len(flags) == 0 {
		fmt.Fprintln(a.out, "  no flags enabled")
	}
	for _, key := range slices.Sorted(maps.Keys(flags)) {
		fmt.Fprintf(a.out, "  %s: %t\n", key, flags[key])
	}
	return nil
}
