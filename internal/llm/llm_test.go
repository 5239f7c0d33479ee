package llm

import (
	"context"
	"strings"
	"testing"

	"newslens/internal/core"
)

func TestCleanSummary(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips boilerplate lead-in",
			input: "Here is a 2-3 sentence summary of the news article: Team X won the final.",
			want:  "Team X won the final.",
		},
		{
			name:  "plain summary untouched",
			input: "Team X won the final.",
			want:  "Team X won the final.",
		},
		{
			name:  "trims whitespace",
			input: "  Team X won the final.  ",
			want:  "Team X won the final.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSummary(tt.input); got != tt.want {
				t.Errorf("CleanSummary(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	long := strings.Repeat("x", 2000)
	if got := truncateText(long, 1500); len(got) != 1500 {
		t.Errorf("expected truncation to 1500, got %d", len(got))
	}
	if got := truncateText("short", 1500); got != "short" {
		t.Errorf("short text should pass through, got %q", got)
	}
}

func TestAnswer_UngroundedDeclinesWithoutModelCall(t *testing.T) {
	// An ungrounded window must never reach the model; a zero-value client
	// would panic if it did.
	client := &Client{}
	window := core.ContextWindow{Grounded: false}

	answer, err := client.Answer(context.Background(), window, "who won?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer != ungroundedAnswer {
		t.Errorf("expected the decline answer, got %q", answer)
	}
}
