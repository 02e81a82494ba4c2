package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(url string) *TelegramNotifier {
	tn := NewTelegramNotifier("123:abc", "-1001", "", 5*time.Second)
	tn.APIURL = url
	return tn
}

func TestSend_Success(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":1714552200,"chat":{"id":-1001,"type":"channel"}}}`))
	}))
	defer srv.Close()

	receipt, err := newTestNotifier(srv.URL).Send(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "-1001", got.ChatID)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.True(t, got.DisableWebPagePreview)

	assert.True(t, receipt.OK)
	assert.Equal(t, int64(42), receipt.MessageID())

	out, err := json.Marshal(receipt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"result":{"message_id":42,"date":1714552200,"chat":{"id":-1001,"type":"channel"}}}`, string(out))
}

func TestSend_DeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	_, err := newTestNotifier(srv.URL).Send(context.Background(), "hello")
	var derr *DeliveryError
	require.True(t, errors.As(err, &derr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, derr.StatusCode)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSend_DeliveryErrorWithoutDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	_, err := newTestNotifier(srv.URL).Send(context.Background(), "hello")
	var derr *DeliveryError
	require.True(t, errors.As(err, &derr))
	assert.Contains(t, err.Error(), "502")
}

func TestSend_NonJSONSuccessIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	_, err := newTestNotifier(srv.URL).Send(context.Background(), "hello")
	var terr *TransportError
	require.True(t, errors.As(err, &terr), "got %T %v", err, err)
	var derr *DeliveryError
	assert.False(t, errors.As(err, &derr))
	assert.Contains(t, err.Error(), "decode telegram response")
}

func TestSend_OKFalseOnSuccessStatusIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Forbidden: bot was kicked"}`))
	}))
	defer srv.Close()

	_, err := newTestNotifier(srv.URL).Send(context.Background(), "hello")
	var derr *DeliveryError
	require.True(t, errors.As(err, &derr))
	assert.Contains(t, err.Error(), "bot was kicked")
}

func TestSend_MissingConfigMakesNoRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	for _, tn := range []*TelegramNotifier{
		NewTelegramNotifier("", "-1001", "", 0),
		NewTelegramNotifier("123:abc", "", "", 0),
	} {
		tn.APIURL = srv.URL
		_, err := tn.Send(context.Background(), "hello")
		var cerr *ConfigurationError
		require.True(t, errors.As(err, &cerr))
		assert.ErrorIs(t, err, ErrNotConfigured)
		assert.Len(t, cerr.Missing, 1)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSend_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestNotifier(url).Send(context.Background(), "hello")
	var terr *TransportError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.NotContains(t, err.Error(), "123:abc")
}

func TestSend_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := newTestNotifier(srv.URL).Send(ctx, "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
