// Package replparse splits interactive session lines into a command name
// and its arguments. Words follow POSIX shell quoting: single quotes are
// literal, double quotes honor backslash escapes of " \ and `, a bare
// backslash escapes any character, and an unquoted # starts a comment.
package replparse

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrUnclosedQuote is returned when a quoted word is not closed
	ErrUnclosedQuote = errors.New("unclosed quote in command line")

	// ErrTrailingEscape is returned when a line ends in a backslash
	ErrTrailingEscape = errors.New("trailing escape character at end of line")
)

// Command is one parsed line.
type Command struct {
	Name string
	Args []string

	line  []rune
	spans []span
}

// span is the rune range a word occupied in its line, quotes included.
type span struct {
	start, end int
}

// Empty reports whether the line held no command.
func (c Command) Empty() bool {
	return c.Name == ""
}

// Arg returns argument i or "" when absent.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Rest returns the text of arguments i and on. A single argument comes
// back unquoted; several come back exactly as typed, from the start of
// argument i to the end of the last one.
func (c Command) Rest(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	if i == len(c.Args)-1 || len(c.spans) != len(c.Args)+1 {
		return strings.Join(c.Args[i:], " ")
	}
	start := c.spans[i+1].start
	end := c.spans[len(c.spans)-1].end
	return string(c.line[start:end])
}

// Parse splits line and lowercases the command name.
func Parse(line string) (Command, error) {
	runes := []rune(line)
	words, spans, err := split(runes)
	if err != nil {
		return Command{}, err
	}
	if len(words) == 0 {
		return Command{}, nil
	}
	return Command{
		Name:  strings.ToLower(words[0]),
		Args:  words[1:],
		line:  runes,
		spans: spans,
	}, nil
}

type quoteState int

const (
	unquoted quoteState = iota
	inSingle
	inDouble
)

type splitter struct {
	words   []string
	spans   []span
	current strings.Builder
	started bool
	start   int
	state   quoteState
}

func (s *splitter) begin(i int) {
	if !s.started {
		s.started = true
		s.start = i
	}
}

func (s *splitter) flush(end int) {
	if s.started {
		s.words = append(s.words, s.current.String())
		s.spans = append(s.spans, span{start: s.start, end: end})
		s.current.Reset()
		s.started = false
	}
}

func (s *splitter) write(r rune) {
	s.current.WriteRune(r)
}

// Split breaks line into words.
//
//	Split(`label g1 "Flags byte"`) => ["label", "g1", "Flags byte"]
//	Split(`decoder g1 'return bits[0]'`) => ["decoder", "g1", "return bits[0]"]
//	Split(`select 0.0 0.1 # first two`) => ["select", "0.0", "0.1"]
func Split(line string) ([]string, error) {
	words, _, err := split([]rune(line))
	return words, err
}

func split(runes []rune) ([]string, []span, error) {
	s := &splitter{}
	end := len(runes)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch s.state {
		case inSingle:
			if r == '\'' {
				s.state = unquoted
				continue
			}
			s.write(r)

		case inDouble:
			switch r {
			case '"':
				s.state = unquoted
			case '\\':
				if i+1 >= len(runes) {
					return nil, nil, ErrTrailingEscape
				}
				i++
				if next := runes[i]; next != '"' && next != '\\' && next != '`' {
					s.write('\\')
				}
				s.write(runes[i])
			default:
				s.write(r)
			}

		default:
			switch {
			case r == '\'':
				s.begin(i)
				s.state = inSingle
			case r == '"':
				s.begin(i)
				s.state = inDouble
			case r == '\\':
				if i+1 >= len(runes) {
					return nil, nil, ErrTrailingEscape
				}
				s.begin(i)
				i++
				s.write(runes[i])
			case r == '#' && !s.started:
				end = i
				i = len(runes)
			case unicode.IsSpace(r):
				s.flush(i)
			default:
				s.begin(i)
				s.write(r)
			}
		}
	}

	switch s.state {
	case inSingle:
		return nil, nil, fmt.Errorf("%w: unclosed single quote", ErrUnclosedQuote)
	case inDouble:
		return nil, nil, fmt.Errorf("%w: unclosed double quote", ErrUnclosedQuote)
	}
	s.flush(end)
	if s.words == nil {
		return []string{}, nil, nil
	}
	return s.words, s.spans, nil
}

// Quote returns word in a form Split reads back unchanged.
func Quote(word string) string {
	if word == "" {
		return "''"
	}
	if !strings.ContainsFunc(word, needsQuoting) {
		return word
	}
	if !strings.Contains(word, "'") {
		return "'" + word + "'"
	}
	var b strings.Builder
	b.WriteRune('"')
	for _, r := range word {
		if r == '"' || r == '\\' || r == '`' {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	b.WriteRune('"')
	return b.String()
}

// Join quotes and joins words into one line.
func Join(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = Quote(w)
	}
	return strings.Join(quoted, " ")
}

func needsQuoting(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(`'"\#`+"`", r)
}
