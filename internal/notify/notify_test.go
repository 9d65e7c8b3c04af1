package notify

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	text      string
	parseMode string
}

func fakeTelegram(t *testing.T, rejectMarkdown bool) (*httptest.Server, *[]sentMessage) {
	t.Helper()
	var mu sync.Mutex
	var sent []sentMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Lobster","username":"lobster_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "42", r.FormValue("chat_id"))
			mode := r.FormValue("parse_mode")
			if rejectMarkdown && mode != "" {
				w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
				return
			}
			mu.Lock()
			sent = append(sent, sentMessage{text: r.FormValue("text"), parseMode: mode})
			mu.Unlock()
			w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &sent
}

func TestTelegramSendMarkdown(t *testing.T) {
	srv, sent := fakeTelegram(t, false)
	tg, err := NewTelegramWithEndpoint("token", srv.URL+"/bot%s/%s", 42)
	require.NoError(t, err)

	require.NoError(t, tg.Send(context.Background(), "Meme scan_base", "hello"))
	require.Len(t, *sent, 1)
	assert.Equal(t, "Markdown", (*sent)[0].parseMode)
	assert.Equal(t, "*Meme scan\\_base*\n\nhello", (*sent)[0].text)
}

func TestTelegramPlainFallback(t *testing.T) {
	srv, sent := fakeTelegram(t, true)
	tg, err := NewTelegramWithEndpoint("token", srv.URL+"/bot%s/%s", 42)
	require.NoError(t, err)

	require.NoError(t, tg.Send(context.Background(), "", "unbalanced *markdown"))
	require.Len(t, *sent, 1)
	assert.Empty(t, (*sent)[0].parseMode)
	assert.Equal(t, "unbalanced *markdown", (*sent)[0].text)
}

func TestTelegramChunksLongReports(t *testing.T) {
	srv, sent := fakeTelegram(t, false)
	tg, err := NewTelegramWithEndpoint("token", srv.URL+"/bot%s/%s", 42)
	require.NoError(t, err)

	body := strings.Repeat(strings.Repeat("x", 99)+"\n", 100) // 10000 chars
	require.NoError(t, tg.Send(context.Background(), "", body))
	require.Len(t, *sent, 3)
	for _, m := range *sent {
		assert.LessOrEqual(t, utf8.RuneCountInString(m.text), maxMessageLen)
	}
}

func TestChunk(t *testing.T) {
	assert.Equal(t, []string{"short"}, chunk("short", 10))
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, chunk("aaaa\nbbbb\ncccc", 10))
	assert.Equal(t, []string{"ééééé", "ééééé", "é"}, chunk(strings.Repeat("é", 11), 5))
}

type failing struct{}

func (failing) Send(context.Context, string, string) error { return errors.New("down") }

func TestMulti(t *testing.T) {
	var buf bytes.Buffer
	m := Multi{Stdout{W: &buf}, failing{}}

	err := m.Send(context.Background(), "Title", "body\n")
	assert.EqualError(t, err, "down")
	assert.Equal(t, "Title\n\nbody\n", buf.String())
}

func TestStdoutCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	assert.ErrorIs(t, Stdout{W: &buf}.Send(ctx, "t", "b"), context.Canceled)
	assert.Empty(t, buf.String())
}
