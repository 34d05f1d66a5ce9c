// Package output renders CLI results as colored text or JSON.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	json "github.com/json-iterator/go"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/thread"
)

var (
	bold    = color.New(color.Bold)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	info    = color.New(color.FgCyan)
	faint   = color.New(color.Faint)
	warning = color.New(color.FgYellow)
)

// Printer writes either human text or JSON depending on Format.
type Printer struct {
	Out    io.Writer
	Format string
}

func NewPrinter(format string) *Printer {
	return &Printer{Out: color.Output, Format: format}
}

func (p *Printer) JSON() bool { return p.Format == "json" }

// Value prints v as indented JSON.
func (p *Printer) Value(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(p.Out, string(data))
	return err
}

func (p *Printer) Success(format string, args ...any) {
	success.Fprintf(p.Out, "✓ "+format+"\n", args...)
}

func (p *Printer) Info(format string, args ...any) {
	info.Fprintf(p.Out, format+"\n", args...)
}

func (p *Printer) Warn(format string, args ...any) {
	warning.Fprintf(p.Out, format+"\n", args...)
}

// Error always goes to stderr.
func Error(format string, args ...any) {
	failure.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

func (p *Printer) Projects(items []*models.Project) {
	for _, pr := range items {
		bold.Fprint(p.Out, pr.Title)
		if !pr.IsPublic {
			warning.Fprint(p.Out, " [private]")
		}
		fmt.Fprintf(p.Out, "  by %s\n", pr.AuthorName)
		if pr.Description != "" {
			fmt.Fprintf(p.Out, "  %s\n", truncate(pr.Description, 100))
		}
		faint.Fprintf(p.Out, "  ♥ %d  💬 %d  %s  %s\n", pr.LikeCount, pr.CommentCount, Ago(pr.CreatedAt), pr.ID)
	}
}

func (p *Printer) Users(items []*models.User) {
	for _, u := range items {
		bold.Fprintf(p.Out, "@%s", u.Username)
		fmt.Fprintf(p.Out, "  %s", u.DisplayName)
		faint.Fprintf(p.Out, "  %d followers\n", u.FollowerCount)
	}
}

func (p *Printer) Notifications(items []models.Notification) {
	for _, n := range items {
		marker := " "
		if !n.Read {
			marker = info.Sprint("●")
		}
		fmt.Fprintf(p.Out, "%s %s %s", marker, bold.Sprint(n.SenderName), describe(n.Type))
		if n.SubjectTitle != "" {
			fmt.Fprintf(p.Out, " %q", n.SubjectTitle)
		}
		faint.Fprintf(p.Out, "  %s\n", Ago(n.CreatedAt))
	}
}

// Thread prints replies in order; pending and rejected ones are marked.
func (p *Printer) Thread(entries []thread.Entry) {
	for _, e := range entries {
		r := e.Reply
		name := bold.Sprint(r.AuthorName)
		switch e.State {
		case thread.Pending:
			name += faint.Sprint(" (sending)")
		case thread.Failed:
			name += failure.Sprint(" (not sent)")
		}
		fmt.Fprintf(p.Out, "%s  %s\n", name, faint.Sprint(Ago(r.CreatedAt)))
		for _, line := range strings.Split(r.Body, "\n") {
			fmt.Fprintf(p.Out, "  %s\n", line)
		}
	}
}

func describe(t models.NotificationType) string {
	switch t {
	case models.NotificationLike:
		return "liked"
	case models.NotificationComment:
		return "commented on"
	case models.NotificationCommentDeleted:
		return "deleted a comment on"
	case models.NotificationFollow:
		return "followed you"
	case models.NotificationGroupJoin:
		return "joined"
	}
	return string(t)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Ago renders t relative to now, e.g. "5m ago".
func Ago(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("Jan 2, 2006")
}

// NewLogger logs to file when set, else stderr.
func NewLogger(level, file string) (*log.Logger, func() error) {
	var w io.Writer = os.Stderr
	closeFn := func() error { return nil }
	if file != "" {
		if f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
			w = f
			closeFn = f.Close
		}
	}
	l := log.NewWithOptions(w, log.Options{ReportTimestamp: true, Prefix: "showcase"})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	l.SetLevel(lvl)
	return l, closeFn
}
