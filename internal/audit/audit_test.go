package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	l := NewLog(filepath.Join(t.TempDir(), "audit.log"))
	l.now = func() time.Time { return time.Date(2026, 2, 21, 14, 30, 0, 0, time.UTC) }
	return l
}

func TestFormatLine(t *testing.T) {
	l := newTestLog(t)
	line := l.format(ActionAdd, "AAPL", "Apple Inc.", []Field{
		Money("current_value", decimal.NewFromInt(11200)),
		Money("cost_basis", decimal.NewFromInt(7500)),
	})
	assert.Equal(t,
		"2026-02-21 14:30:00 | ADD    | AAPL   | Apple Inc. | current_value=$11,200.00  cost_basis=$7,500.00\n",
		line)
}

func TestFormatLineWithoutTicker(t *testing.T) {
	l := newTestLog(t)
	line := l.format(ActionDelete, "", "US I Bond", nil)
	assert.Equal(t, "2026-02-21 14:30:00 | DELETE | -      | US I Bond | \n", line)
}

func TestEntriesNewestFirst(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Record(ActionAdd, "AAPL", "Apple Inc.", Money("current_value", decimal.NewFromInt(100))))
	require.NoError(t, l.Record(ActionEdit, "AAPL", "Apple Inc.", Money("value_change", decimal.NewFromInt(-5))))

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, ActionEdit, entries[0].Action)
	assert.Equal(t, "-$5.00", entries[0].Fields["value_change"])
	assert.Equal(t, ActionAdd, entries[1].Action)
	assert.Equal(t, "AAPL", entries[1].Ticker)
	assert.Equal(t, "Apple Inc.", entries[1].Name)
	assert.Equal(t, "$100.00", entries[1].Fields["current_value"])
}

func TestEntriesMissingFile(t *testing.T) {
	l := NewLog(filepath.Join(t.TempDir(), "missing.log"))
	entries, err := l.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		ok     bool
		fields int
	}{
		{"full", "2026-02-21 22:22:49 | ADD    | NVDA   | Nvidia Corp. | a=$1.00  b=$2.00", true, 2},
		{"no fields", "2026-02-21 22:22:49 | DELETE | - | Bond", true, 0},
		{"too short", "2026-02-21 | ADD", false, 0},
		{"blank", "   ", false, 0},
		{"token without equals", "ts | PRICE | X | Y | garbage k=v", true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := ParseLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Len(t, e.Fields, tt.fields)
			}
		})
	}
}

func TestTextCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a_b_c", Text("k", " a  b\tc ").Value)
}
