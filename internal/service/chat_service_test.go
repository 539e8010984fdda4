package service

import (
	"strings"
	"testing"
	"time"

	"comai-chat-be/internal/constant"
	"comai-chat-be/internal/entity"
)

func TestBuildMemoryContext(t *testing.T) {
	tests := []struct {
		name    string
		history []*entity.Message
		want    string
	}{
		{
			name:    "empty history",
			history: nil,
			want:    "",
		},
		{
			name: "single turn",
			history: []*entity.Message{
				{Role: "user", Content: "Hello"},
			},
			want: "user: Hello",
		},
		{
			name: "alternating turns keep order",
			history: []*entity.Message{
				{Role: "user", Content: "What is the refund policy?"},
				{Role: "assistant", Content: "Refunds are accepted within 30 days."},
				{Role: "user", Content: "And after that?"},
			},
			want: "user: What is the refund policy?\n" +
				"assistant: Refunds are accepted within 30 days.\n" +
				"user: And after that?",
		},
		{
			name: "multiline content stays inside its line block",
			history: []*entity.Message{
				{Role: "assistant", Content: "First line.\nSecond line."},
			},
			want: "assistant: First line.\nSecond line.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildMemoryContext(tt.history)
			if got != tt.want {
				t.Errorf("buildMemoryContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{
			name:     "short question passes through",
			question: "What is the refund policy?",
			want:     "What is the refund policy?",
		},
		{
			name:     "whitespace collapses",
			question: "  how   do\nI reset\tmy password  ",
			want:     "how do I reset my password",
		},
		{
			name:     "blank question falls back to default",
			question: "   \n\t ",
			want:     constant.DefaultConversationTitle,
		},
		{
			name:     "exactly at the cap stays intact",
			question: strings.Repeat("b", constant.AutoTitleMaxLen),
			want:     strings.Repeat("b", constant.AutoTitleMaxLen),
		},
		{
			name:     "long question is truncated with ellipsis",
			question: strings.Repeat("a", 200),
			want:     strings.Repeat("a", constant.AutoTitleMaxLen-3) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveTitle(tt.question)
			if got != tt.want {
				t.Errorf("deriveTitle(%q) = %q, want %q", tt.question, got, tt.want)
			}
			if n := len([]rune(got)); n > constant.AutoTitleMaxLen {
				t.Errorf("deriveTitle(%q) produced %d runes, cap is %d", tt.question, n, constant.AutoTitleMaxLen)
			}
		})
	}
}

func TestDeriveTitleMultibyte(t *testing.T) {
	question := strings.Repeat("ü", constant.AutoTitleMaxLen+10)
	got := deriveTitle(question)

	if !strings.HasSuffix(got, "...") {
		t.Errorf("deriveTitle() = %q, want ellipsis suffix", got)
	}
	if n := len([]rune(got)); n != constant.AutoTitleMaxLen {
		t.Errorf("deriveTitle() produced %d runes, want %d", n, constant.AutoTitleMaxLen)
	}
}

func TestBuildMemoryContextIgnoresTimestamps(t *testing.T) {
	// The context block carries only roles and content; ordering is the
	// caller's job via the created_at query ordering.
	earlier := time.Now().Add(-time.Hour)
	history := []*entity.Message{
		{Role: "user", Content: "second", CreatedAt: time.Now()},
		{Role: "user", Content: "first", CreatedAt: earlier},
	}

	got := buildMemoryContext(history)
	want := "user: second\nuser: first"
	if got != want {
		t.Errorf("buildMemoryContext() = %q, want %q", got, want)
	}
}
