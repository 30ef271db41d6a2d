package conversation

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// PrintFunc is a function used to print formatted output.
// Matches the signature of both fmt.Printf and display.UI.Printf.
type PrintFunc func(format string, a ...interface{})

// CLINotifier writes notifications to the terminal with ANSI formatting.
type CLINotifier struct {
	log     *logger.Logger
	printFn PrintFunc
}

// NewCLINotifier creates a terminal notifier.
// If printFn is nil, fmt.Printf is used.
func NewCLINotifier(log *logger.Logger, printFn PrintFunc) *CLINotifier {
	if printFn == nil {
		printFn = func(format string, a ...interface{}) {
			fmt.Printf(format+"\n", a...)
		}
	}
	return &CLINotifier{log: log, printFn: printFn}
}

// Notify prints a normal notification.
func (n *CLINotifier) Notify(ctx context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	n.printFn("%s%s%s%s", cyan, bold, message, reset)
	return nil
}

// NotifyError prints an error in bold red.
func (n *CLINotifier) NotifyError(ctx context.Context, err error) error {
	n.log.Debug("notify-error: %v", err)
	n.printFn("%s%s%v%s", red, bold, err, reset)
	return nil
}

// NotifyFinished prints one line for a completed utterance, coloured by
// its outcome.
func (n *CLINotifier) NotifyFinished(ctx context.Context, rec *domain.Record) error {
	n.log.Debug("notify-finished: %s (%s)", rec.ID, rec.Status)

	color, mark := green, "✓"
	switch rec.Status {
	case domain.RecordInterrupted:
		color, mark = yellow, "↷"
	case domain.RecordFailed:
		color, mark = red, "✗"
	}

	line := fmt.Sprintf("%s%s %s%s %s%s%s", color, mark, rec.Status, reset, dim, truncate(rec.Text, 50), reset)
	if rec.Err != "" && rec.Status == domain.RecordFailed {
		line += fmt.Sprintf(" %s(%s)%s", red, rec.Err, reset)
	}
	n.printFn("%s", line)
	return nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
