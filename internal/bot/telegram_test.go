package bot

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/laschacras/cabanas-api/internal/models"
)

func TestHandleMessageIgnoresMessagesWithoutSender(t *testing.T) {
	responder, _, _ := newTestResponder(t, models.Intent{}, nil)
	b := &Bot{
		responder: responder,
		allowed:   map[string]bool{"1": true},
	}

	// Channel posts and anonymous group admins have From unset; the update
	// handler must not crash on them.
	b.handleMessage(context.Background(), &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 1},
		Text: "hola",
	})
}

func TestSyncReplyBoundsTheOperation(t *testing.T) {
	responder, _, pub := newTestResponder(t, models.Intent{}, nil)
	b := &Bot{responder: responder}

	reply := b.syncReply(context.Background())
	assert.Contains(t, reply, "📤 Calendario sincronizado")
	assert.True(t, pub.sawDeadline, "publication must run under a deadline")
}

func TestWantsCalendarLink(t *testing.T) {
	assert.True(t, wantsCalendarLink("pasame el CALENDARIO"))
	assert.True(t, wantsCalendarLink("quiero ver reservas"))
	assert.False(t, wantsCalendarLink("reservá para Ana tres noches"))
}

func TestChunksSplitsLongReplies(t *testing.T) {
	got := chunks("abcde", 2)
	assert.Equal(t, []string{"ab", "cd", "e"}, got)

	got = chunks("corto", 100)
	assert.Equal(t, []string{"corto"}, got)
}
