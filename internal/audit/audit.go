// Package audit keeps an append-only, human-readable log of holding changes.
package audit

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05"

// Actions written to the log.
const (
	ActionAdd    = "ADD"
	ActionEdit   = "EDIT"
	ActionDelete = "DELETE"
	ActionPrice  = "PRICE"
)

// Field is one key=value pair on an audit line.
type Field struct {
	Key   string
	Value string
}

// Money formats a dollar amount field, e.g. current_value=$11,200.00.
func Money(key string, amount decimal.Decimal) Field {
	return Field{Key: key, Value: domain.FormatMoney(amount)}
}

// Text is a plain field; whitespace is collapsed so the line stays parseable.
func Text(key, value string) Field {
	return Field{Key: key, Value: strings.Join(strings.Fields(value), "_")}
}

// Entry is a parsed audit line.
type Entry struct {
	Timestamp string            `json:"timestamp"`
	Action    string            `json:"action"`
	Ticker    string            `json:"ticker"`
	Name      string            `json:"name"`
	Fields    map[string]string `json:"fields"`
}

// Log appends entries to a file, one line each:
//
//	2026-02-21 14:30:00 | ADD    | AAPL   | Apple Inc. | current_value=$11,200.00  cost_basis=$7,500.00
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewLog creates a Log writing to path.
func NewLog(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Record appends one line.
func (l *Log) Record(action, ticker, name string, fields ...Field) error {
	line := l.format(action, ticker, name, fields)

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("writing audit log: %w", err)
	}
	return f.Close()
}

func (l *Log) format(action, ticker, name string, fields []Field) string {
	if ticker == "" {
		ticker = "-"
	}
	kv := make([]string, 0, len(fields))
	for _, f := range fields {
		kv = append(kv, f.Key+"="+f.Value)
	}
	return fmt.Sprintf("%s | %-6s | %-6s | %s | %s\n",
		l.now().Format(timestampLayout), action, ticker, name, strings.Join(kv, "  "))
}

// Entries reads the whole log, newest first. A missing file is an empty log.
func (l *Log) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if e, ok := ParseLine(scanner.Text()); ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	slices.Reverse(entries)
	return entries, nil
}

// ParseLine parses one audit line. Lines with fewer than four columns are rejected.
func ParseLine(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Entry{}, false
	}

	parts := strings.SplitN(line, "|", 5)
	if len(parts) < 4 {
		return Entry{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	e := Entry{
		Timestamp: parts[0],
		Action:    parts[1],
		Ticker:    parts[2],
		Name:      parts[3],
		Fields:    map[string]string{},
	}
	if len(parts) == 5 {
		for _, token := range strings.Fields(parts[4]) {
			if k, v, ok := strings.Cut(token, "="); ok {
				e.Fields[k] = v
			}
		}
	}
	return e, true
}
