package ragclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, queryEndpoint, r.URL.Path)

		var req QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is comai?", req.Question)
		assert.Equal(t, "user: hi\nassistant: hello", req.Context)

		json.NewEncoder(w).Encode(QueryResponse{
			Answer:    "ComAI is the Commedia assistant.",
			Sources:   []string{"about.md"},
			FollowUps: []string{"What can it do?"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.Query(context.Background(), QueryRequest{
		Question: "what is comai?",
		Context:  "user: hi\nassistant: hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "ComAI is the Commedia assistant.", resp.Answer)
	assert.Equal(t, []string{"about.md"}, resp.Sources)
	assert.Equal(t, []string{"What can it do?"}, resp.FollowUps)
}

func TestQueryNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Query(context.Background(), QueryRequest{Question: "q"})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestSendFeedback(t *testing.T) {
	var received FeedbackRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, feedbackEndpoint, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).SendFeedback(context.Background(), FeedbackRequest{
		Question: "what is comai?",
		Answer:   "ComAI is the Commedia assistant.",
		Positive: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "what is comai?", received.Question)
	assert.Equal(t, "ComAI is the Commedia assistant.", received.Answer)
	assert.True(t, received.Positive)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "healthy", status: http.StatusOK},
		{name: "unhealthy", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, healthEndpoint, r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Health(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
