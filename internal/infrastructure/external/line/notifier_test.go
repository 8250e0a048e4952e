package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPush(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("sends a well-formed push request", func(t *testing.T) {
		var gotAuth, gotPath string
		var gotBody pushRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		n := NewNotifier(Config{
			ChannelToken: "secret",
			APIBaseURL:   server.URL,
		}, logger)

		err := n.SendToGroup(context.Background(), "G123", "⏰ Reminder: report due")
		require.NoError(t, err)

		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "/v2/bot/message/push", gotPath)
		assert.Equal(t, "G123", gotBody.To)
		require.Len(t, gotBody.Messages, 1)
		assert.Equal(t, "text", gotBody.Messages[0].Type)
		assert.Equal(t, "⏰ Reminder: report due", gotBody.Messages[0].Text)
	})

	t.Run("user push targets the user id", func(t *testing.T) {
		var gotBody pushRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		n := NewNotifier(Config{ChannelToken: "secret", APIBaseURL: server.URL}, logger)
		require.NoError(t, n.SendToUser(context.Background(), "U456", "hello"))
		assert.Equal(t, "U456", gotBody.To)
	})

	t.Run("non-200 response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message":"rate limited"}`))
		}))
		defer server.Close()

		n := NewNotifier(Config{ChannelToken: "secret", APIBaseURL: server.URL}, logger)
		err := n.SendToGroup(context.Background(), "G123", "hello")
		assert.ErrorContains(t, err, "status 429")
	})

	t.Run("cancelled context stops the send", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		n := NewNotifier(Config{ChannelToken: "secret", APIBaseURL: server.URL}, logger)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, n.SendToGroup(ctx, "G123", "hello"))
	})
}
