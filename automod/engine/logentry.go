package engine

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// card colors
const (
	ColorBlue     = 0x3498db
	ColorYellow   = 0xf1c40f
	ColorOrange   = 0xe67e22
	ColorRed      = 0xe74c3c
	ColorGreen    = 0x2ecc71
	ColorGrey     = 0x95a5a6
	ColorDarkGrey = 0x607d8b
)

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Structured moderation log record. The platform decides how to render it; Text gives a plain fallback.
type LogEntry struct {
	Title     string    `json:"title"`
	Color     int       `json:"color"`
	Fields    []Field   `json:"fields,omitempty"`
	Footer    string    `json:"footer,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLogEntry(title string, color int) *LogEntry {
	return &LogEntry{
		Title:     title,
		Color:     color,
		Timestamp: time.Now(),
	}
}

func (e *LogEntry) AddField(name, value string, inline bool) *LogEntry {
	e.Fields = append(e.Fields, Field{Name: name, Value: value, Inline: inline})
	return e
}

// Returns the value of the first field with the given name.
func (e *LogEntry) Field(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func (e *LogEntry) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", e.Title)
	for _, f := range e.Fields {
		fmt.Fprintf(&sb, "%s: %s\n", f.Name, f.Value)
	}
	if e.Footer != "" {
		fmt.Fprintf(&sb, "_%s_\n", e.Footer)
	}
	return sb.String()
}

// Card color for a 1..4 risk level.
func RiskColor(level int) int {
	switch level {
	case 1:
		return ColorBlue
	case 2:
		return ColorYellow
	case 3:
		return ColorOrange
	case 4:
		return ColorRed
	default:
		return ColorGrey
	}
}

// Cuts s to at most n bytes, backing off to a rune boundary so the result stays valid UTF-8.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "... (truncated)"
}
