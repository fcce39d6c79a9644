package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/runledger/internal/model"
)

func TestFormatGold(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0金"},
		{1234, "1234金"},
		{9999, "9999金"},
		{10000, "1万金"},
		{15000, "1.50万金"},
		{123456, "12.35万金"},
		{100_000_000, "1亿金"},
		{250_000_000, "2.50亿金"},
		{-30000, "-3万金"},
		{-50, "-50金"},
	}
	for _, tt := range tests {
		if got := FormatGold(tt.in); got != tt.want {
			t.Errorf("FormatGold(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234, "-1,234"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()
	if got := FormatTime(time.Time{}); got != model.NotFound {
		t.Errorf("zero time = %q", got)
	}
	ts := time.Date(2024, 3, 13, 20, 5, 9, 0, time.UTC)
	if got := FormatTime(ts); got != "2024-03-13 20:05:09" {
		t.Errorf("FormatTime = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{125 * time.Second, "2m"},
		{3725 * time.Second, "1h 2m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSpecials(t *testing.T) {
	t.Parallel()
	if got := FormatSpecials(nil); got != "-" {
		t.Errorf("empty = %q", got)
	}
	got := FormatSpecials([]model.SpecialPurchase{
		{Item: "静子（宠物）", Price: 20000},
		{Item: "鸷（宠物）", Price: 500},
	})
	if got != "静子（宠物）(2万金)、鸷（宠物）(500金)" {
		t.Errorf("FormatSpecials = %q", got)
	}
}

func TestRenderTable_AlignsWideRunes(t *testing.T) {
	t.Parallel()
	out := RenderTable(Table{
		Headers: []string{"副本", "收入"},
		Rows: [][]string{
			{"西津渡", "1万金"},
			{"a", "5金"},
		},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	want := lipgloss.Width(lines[0])
	for i, l := range lines {
		if w := lipgloss.Width(l); w != want {
			t.Errorf("line %d width %d, want %d: %q", i, w, want, l)
		}
	}
}

func TestRenderTable_Empty(t *testing.T) {
	t.Parallel()
	if got := RenderTable(Table{}); got != "" {
		t.Errorf("empty table = %q", got)
	}
}

func TestRenderTable_Separator(t *testing.T) {
	t.Parallel()
	out := RenderTable(Table{Rows: [][]string{{"a", "1"}, {"---"}, {"b", "2"}}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 5 || !strings.Contains(lines[2], "┼") {
		t.Errorf("separator not drawn:\n%s", out)
	}
}
