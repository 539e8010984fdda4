package ragclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    *StreamEvent
		wantErr bool
	}{
		{
			name: "token",
			line: `{"type":"token","content":"Hel"}`,
			want: &StreamEvent{Type: EventToken, Text: "Hel"},
		},
		{
			name: "token with empty content",
			line: `{"type":"token","content":""}`,
			want: &StreamEvent{Type: EventToken, Text: ""},
		},
		{
			name: "sources",
			line: `{"type":"sources","content":["doc1","doc2"]}`,
			want: &StreamEvent{Type: EventSources, List: []string{"doc1", "doc2"}},
		},
		{
			name: "follow ups",
			line: `{"type":"follow_ups","content":["q1"]}`,
			want: &StreamEvent{Type: EventFollowUps, List: []string{"q1"}},
		},
		{
			name: "done without content",
			line: `{"type":"done"}`,
			want: &StreamEvent{Type: EventDone},
		},
		{
			name: "done ignores stray content",
			line: `{"type":"done","content":"bye"}`,
			want: &StreamEvent{Type: EventDone},
		},
		{
			name: "error with message",
			line: `{"type":"error","content":"backend down"}`,
			want: &StreamEvent{Type: EventError, Text: "backend down"},
		},
		{
			name: "error with non-string payload falls back to generic message",
			line: `{"type":"error","content":{"code":500}}`,
			want: &StreamEvent{Type: EventError, Text: genericUpstreamMessage},
		},
		{
			name: "error without payload falls back to generic message",
			line: `{"type":"error"}`,
			want: &StreamEvent{Type: EventError, Text: genericUpstreamMessage},
		},
		{
			name:    "invalid json",
			line:    `{"type":"tok`,
			wantErr: true,
		},
		{
			name:    "missing type",
			line:    `{"content":"hello"}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			line:    `{"type":"usage","content":"x"}`,
			wantErr: true,
		},
		{
			name:    "token with array content",
			line:    `{"type":"token","content":["a"]}`,
			wantErr: true,
		},
		{
			name:    "token without content",
			line:    `{"type":"token"}`,
			wantErr: true,
		},
		{
			name:    "sources with string content",
			line:    `{"type":"sources","content":"doc1"}`,
			wantErr: true,
		},
		{
			name:    "sources without content",
			line:    `{"type":"sources"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEvent([]byte(tt.line))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccumulatorFoldRules(t *testing.T) {
	acc := &accumulator{}

	acc.apply(&StreamEvent{Type: EventToken, Text: "Hel"})
	acc.apply(&StreamEvent{Type: EventToken, Text: "lo"})
	assert.Equal(t, "Hello", acc.snapshot().Answer)

	// Sources and follow-ups replace wholesale, never merge.
	acc.apply(&StreamEvent{Type: EventSources, List: []string{"old.pdf"}})
	acc.apply(&StreamEvent{Type: EventSources, List: []string{"new.pdf"}})
	assert.Equal(t, []string{"new.pdf"}, acc.snapshot().Sources)

	acc.apply(&StreamEvent{Type: EventFollowUps, List: []string{"a?", "b?"}})
	acc.apply(&StreamEvent{Type: EventFollowUps, List: []string{"c?"}})
	assert.Equal(t, []string{"c?"}, acc.snapshot().FollowUps)

	assert.False(t, acc.snapshot().Done)
	acc.apply(&StreamEvent{Type: EventDone})
	assert.True(t, acc.snapshot().Done)

	out := acc.completedOutcome()
	assert.Equal(t, OutcomeCompleted, out.Status)
	assert.Equal(t, "Hello", out.Answer)
	assert.Equal(t, []string{"new.pdf"}, out.Sources)
	assert.Equal(t, []string{"c?"}, out.FollowUps)
	assert.NoError(t, out.Err)
}
