// Package conversation provides command parsing and user notification implementations.
package conversation

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/logger"
)

// Compile-time interface check.
var _ domain.CommandParser = (*KeywordParser)(nil)

// KeywordParser matches prompt input to commands using keywords and simple
// patterns. Anything that is not a command is text to speak.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
	args     []argRule
}

type patternRule struct {
	regex   *regexp.Regexp
	command domain.CommandType
}

// argRule matches commands that carry an argument in the first capture group.
type argRule struct {
	regex   *regexp.Regexp
	command domain.CommandType
}

// NewKeywordParser creates a keyword-based command parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(pause|hold|p)$`), domain.CommandPause},
		{regexp.MustCompile(`(?i)^(resume|unpause|go on|continue)$`), domain.CommandResume},
		{regexp.MustCompile(`(?i)^(stop|cancel|shh+|hush|silence|x)$`), domain.CommandCancel},
		{regexp.MustCompile(`(?i)^(voices|voice|v)$`), domain.CommandVoices},
		{regexp.MustCompile(`(?i)^(status|info|where)$`), domain.CommandStatus},
		{regexp.MustCompile(`(?i)^(history|hist|log)$`), domain.CommandHistory},
		{regexp.MustCompile(`(?i)^(repeat|again|r|say that again)$`), domain.CommandRepeat},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.CommandHelp},
		{regexp.MustCompile(`(?i)^(quit|exit|q|bye)$`), domain.CommandQuit},
	}
	p.args = []argRule{
		{regexp.MustCompile(`(?i)^pitch\b\s*(.*)$`), domain.CommandPitch},
		{regexp.MustCompile(`(?i)^rate\b\s*(.*)$`), domain.CommandRate},
		{regexp.MustCompile(`(?i)^(?:\+|queue\b|then\b)\s*(.*)$`), domain.CommandQueue},
		{regexp.MustCompile(`(?i)^say\b\s*(.*)$`), domain.CommandSpeak},
	}
	return p
}

// Parse converts user input into a command. Bad numeric arguments yield an
// error wrapping domain.ErrInvalidArgument.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Command, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Command{Type: domain.CommandUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		if rule.regex.MatchString(trimmed) {
			p.log.Debug("matched command: %s", rule.command)
			return &domain.Command{Type: rule.command}, nil
		}
	}

	for _, rule := range p.args {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		arg := strings.TrimSpace(m[1])
		p.log.Debug("matched command: %s (arg=%q)", rule.command, arg)

		switch rule.command {
		case domain.CommandPitch, domain.CommandRate:
			v, err := parseNumber(arg)
			if err != nil {
				return nil, fmt.Errorf("%w: %s %s", domain.ErrInvalidArgument, rule.command, err)
			}
			return &domain.Command{Type: rule.command, Value: v}, nil
		default:
			if arg == "" {
				return nil, fmt.Errorf("%w: %s needs some text", domain.ErrInvalidArgument, rule.command)
			}
			return &domain.Command{Type: rule.command, Payload: arg}, nil
		}
	}

	return &domain.Command{Type: domain.CommandSpeak, Payload: trimmed}, nil
}

// parseNumber accepts any finite decimal. Range limits are up to the engine.
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("needs a number")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}
