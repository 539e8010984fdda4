package ragclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamBackend serves the streaming endpoint by writing the given chunks in
// order, flushing after each one so chunk boundaries reach the client as they
// would from a real backend.
func streamBackend(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, streamEndpoint, r.URL.Path)
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, chunk := range chunks {
			io.WriteString(w, chunk)
			flusher.Flush()
		}
	}))
}

func TestStreamQueryAssemblesCompletedOutcomes(t *testing.T) {
	tests := []struct {
		name          string
		chunks        []string
		wantAnswer    string
		wantSources   []string
		wantFollowUps []string
	}{
		{
			name: "tokens sources and done",
			chunks: []string{
				"{\"type\":\"token\",\"content\":\"Hel\"}\n",
				"{\"type\":\"token\",\"content\":\"lo\"}\n",
				"{\"type\":\"sources\",\"content\":[\"doc1\"]}\n",
				"{\"type\":\"done\"}\n",
			},
			wantAnswer:  "Hello",
			wantSources: []string{"doc1"},
		},
		{
			name: "line split mid json across chunks",
			chunks: []string{
				"{\"type\":\"tok",
				"en\",\"content\":\"X\"}\n",
				"{\"type\":\"done\"}\n",
			},
			wantAnswer: "X",
		},
		{
			name: "eof without terminal still delivers the partial answer",
			chunks: []string{
				"{\"type\":\"token\",\"content\":\"Hel\"}\n",
				"{\"type\":\"token\",\"content\":\"lo\"}\n",
			},
			wantAnswer: "Hello",
		},
		{
			name: "trailing fragment without newline is dropped",
			chunks: []string{
				"{\"type\":\"token\",\"content\":\"A\"}\n",
				"{\"type\":\"token\",\"content\":\"B\"}",
			},
			wantAnswer: "A",
		},
		{
			name: "malformed lines are skipped without aborting",
			chunks: []string{
				"{\"type\":\"token\",\"content\":\"A\"}\n",
				"not json at all\n",
				"{\"content\":\"missing type\"}\n",
				"{\"type\":\"sources\",\"content\":\"not-an-array\"}\n",
				"{\"type\":\"token\",\"content\":\"B\"}\n",
				"{\"type\":\"done\"}\n",
			},
			wantAnswer: "AB",
		},
		{
			name: "blank lines are ignored",
			chunks: []string{
				"\n",
				"{\"type\":\"token\",\"content\":\"A\"}\n",
				"   \n",
				"{\"type\":\"done\"}\n",
			},
			wantAnswer: "A",
		},
		{
			name: "consecutive sources keep only the last payload",
			chunks: []string{
				"{\"type\":\"sources\",\"content\":[\"first.pdf\"]}\n",
				"{\"type\":\"sources\",\"content\":[\"second.pdf\"]}\n",
				"{\"type\":\"done\"}\n",
			},
			wantSources: []string{"second.pdf"},
		},
		{
			name: "follow ups replace and survive to the outcome",
			chunks: []string{
				"{\"type\":\"token\",\"content\":\"Hi\"}\n",
				"{\"type\":\"follow_ups\",\"content\":[\"old?\"]}\n",
				"{\"type\":\"follow_ups\",\"content\":[\"a?\",\"b?\"]}\n",
				"{\"type\":\"done\"}\n",
			},
			wantAnswer:    "Hi",
			wantFollowUps: []string{"a?", "b?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := streamBackend(t, tt.chunks...)
			defer srv.Close()

			client := NewClient(srv.URL)
			out := client.StreamQuery(context.Background(), QueryRequest{Question: "q"}, nil)

			require.Equal(t, OutcomeCompleted, out.Status)
			assert.True(t, out.Completed())
			assert.NoError(t, out.Err)
			assert.Equal(t, tt.wantAnswer, out.Answer)
			if tt.wantSources == nil {
				assert.Empty(t, out.Sources)
			} else {
				assert.Equal(t, tt.wantSources, out.Sources)
			}
			if tt.wantFollowUps == nil {
				assert.Empty(t, out.FollowUps)
			} else {
				assert.Equal(t, tt.wantFollowUps, out.FollowUps)
			}
		})
	}
}

func TestStreamQuerySnapshotsArriveInOrder(t *testing.T) {
	srv := streamBackend(t,
		"{\"type\":\"token\",\"content\":\"Hel\"}\n",
		"{\"type\":\"token\",\"content\":\"lo\"}\n",
		"{\"type\":\"sources\",\"content\":[\"doc1\"]}\n",
		"{\"type\":\"done\"}\n",
	)
	defer srv.Close()

	var snapshots []Snapshot
	client := NewClient(srv.URL)
	out := client.StreamQuery(context.Background(), QueryRequest{Question: "q"}, func(s Snapshot) {
		snapshots = append(snapshots, s)
	})

	require.Equal(t, OutcomeCompleted, out.Status)
	require.Len(t, snapshots, 4)
	assert.Equal(t, "Hel", snapshots[0].Answer)
	assert.Equal(t, "Hello", snapshots[1].Answer)
	assert.Equal(t, []string{"doc1"}, snapshots[2].Sources)
	assert.False(t, snapshots[2].Done)
	assert.True(t, snapshots[3].Done)
}

func TestStreamQuerySegmentationInvariance(t *testing.T) {
	stream := "{\"type\":\"token\",\"content\":\"Hel\"}\n" +
		"{\"type\":\"token\",\"content\":\"lo\"}\n" +
		"{\"type\":\"sources\",\"content\":[\"doc1\",\"doc2\"]}\n" +
		"{\"type\":\"follow_ups\",\"content\":[\"next?\"]}\n" +
		"{\"type\":\"done\"}\n"

	run := func(chunks []string) (Outcome, []Snapshot) {
		srv := streamBackend(t, chunks...)
		defer srv.Close()
		var snapshots []Snapshot
		out := NewClient(srv.URL).StreamQuery(context.Background(), QueryRequest{Question: "q"}, func(s Snapshot) {
			snapshots = append(snapshots, s)
		})
		return out, snapshots
	}

	var byteChunks []string
	for _, b := range []byte(stream) {
		byteChunks = append(byteChunks, string([]byte{b}))
	}

	wholeOut, wholeSnaps := run([]string{stream})
	byteOut, byteSnaps := run(byteChunks)

	assert.Equal(t, wholeOut, byteOut)
	assert.Equal(t, wholeSnaps, byteSnaps)
	assert.Equal(t, "Hello", wholeOut.Answer)
	assert.Equal(t, []string{"doc1", "doc2"}, wholeOut.Sources)
	assert.Equal(t, []string{"next?"}, wholeOut.FollowUps)
}

func TestStreamQueryUpstreamError(t *testing.T) {
	srv := streamBackend(t,
		"{\"type\":\"token\",\"content\":\"Partial\"}\n",
		"{\"type\":\"error\",\"content\":\"backend down\"}\n",
		"{\"type\":\"token\",\"content\":\"never applied\"}\n",
	)
	defer srv.Close()

	var updates int
	out := NewClient(srv.URL).StreamQuery(context.Background(), QueryRequest{Question: "q"}, func(Snapshot) {
		updates++
	})

	require.Equal(t, OutcomeFailed, out.Status)
	var upstream *UpstreamError
	require.True(t, errors.As(out.Err, &upstream))
	assert.Equal(t, "backend down", upstream.Message)
	// Prior tokens never surface on a failed outcome.
	assert.Empty(t, out.Answer)
	assert.Equal(t, 2, updates)
}

func TestStreamQueryTransportErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var updates int
	out := NewClient(srv.URL).StreamQuery(context.Background(), QueryRequest{Question: "q"}, func(Snapshot) {
		updates++
	})

	require.Equal(t, OutcomeFailed, out.Status)
	var transport *TransportError
	require.True(t, errors.As(out.Err, &transport))
	assert.Equal(t, http.StatusServiceUnavailable, transport.StatusCode)
	assert.Zero(t, updates)
}

func TestStreamQueryTransportErrorOnDeadBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	out := NewClient(srv.URL).StreamQuery(context.Background(), QueryRequest{Question: "q"}, nil)

	require.Equal(t, OutcomeFailed, out.Status)
	var transport *TransportError
	require.True(t, errors.As(out.Err, &transport))
	assert.Equal(t, "connect", transport.Op)
}

func TestStreamQueryCancelMidStream(t *testing.T) {
	srv := streamBackend(t,
		"{\"type\":\"token\",\"content\":\"Hello\"}\n"+
			"{\"type\":\"token\",\"content\":\" world\"}\n"+
			"{\"type\":\"done\"}\n",
	)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var snapshots []Snapshot
	out := NewClient(srv.URL).StreamQuery(ctx, QueryRequest{Question: "q"}, func(s Snapshot) {
		snapshots = append(snapshots, s)
		cancel()
	})

	require.Equal(t, OutcomeCancelled, out.Status)
	assert.True(t, out.Cancelled())
	assert.ErrorIs(t, out.Err, context.Canceled)

	// The remaining buffered events were never folded or surfaced, and the
	// accumulator is discarded from the outcome.
	require.Len(t, snapshots, 1)
	assert.Equal(t, "Hello", snapshots[0].Answer)
	assert.Empty(t, out.Answer)
	assert.Empty(t, out.Sources)
	assert.Empty(t, out.FollowUps)
}

func TestStreamQueryCancelledBeforeConnect(t *testing.T) {
	srv := streamBackend(t, "{\"type\":\"done\"}\n")
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var updates int
	out := NewClient(srv.URL).StreamQuery(ctx, QueryRequest{Question: "q"}, func(Snapshot) {
		updates++
	})

	assert.Equal(t, OutcomeCancelled, out.Status)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Zero(t, updates)
}
