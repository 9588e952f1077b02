package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegram_Send(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		got.Store(r.Form.Get("chat_id") + "|" + r.Form.Get("text"))
		w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	tg := NewTelegram("test-token", "@channel", time.Second)
	tg.apiBase = srv.URL

	err := tg.Send(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, "@channel|hello world", got.Load())
}

func TestTelegram_SendRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	tg := NewTelegram("t", "c", time.Second)
	tg.apiBase = srv.URL

	err := tg.Send(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTelegram_SendExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "chat not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegram("t", "c", time.Second)
	tg.apiBase = srv.URL

	err := tg.Send(context.Background(), "doomed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
