package main

import (
	"testing"
	"time"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer product name", 10, "a longe..."},
		{"crème hydratante", 8, "crème..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(1500 * time.Millisecond); got != "1.5s" {
		t.Errorf("formatDuration(1.5s) = %q", got)
	}
	if got := formatDuration(125 * time.Second); got != "2m 5s" {
		t.Errorf("formatDuration(125s) = %q", got)
	}
}

func TestBuildProgressBar(t *testing.T) {
	tests := []struct {
		current, total, width int
		want                  string
	}{
		{0, 0, 4, "    "},
		{0, 10, 4, ">   "},
		{5, 10, 4, "==> "},
		{10, 10, 4, "===="},
	}
	for _, tt := range tests {
		if got := buildProgressBar(tt.current, tt.total, tt.width); got != tt.want {
			t.Errorf("buildProgressBar(%d, %d, %d) = %q, want %q", tt.current, tt.total, tt.width, got, tt.want)
		}
	}
}

func TestProductLine(t *testing.T) {
	if got := productLine("Acme", "Serum", 12.5); got != "Acme | Serum | 12.50" {
		t.Errorf("productLine = %q", got)
	}
	if got := productLine("", "", 3); got != "3.00" {
		t.Errorf("productLine without brand = %q", got)
	}
}
