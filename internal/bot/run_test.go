package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"tripfriend_bot/internal/calendar"
)

// gatedConversation blocks HandleText for one chat until released.
type gatedConversation struct {
	blockChat int64
	started   chan struct{}
	release   chan struct{}
	once      sync.Once

	mu      sync.Mutex
	handled []int64
}

func newGatedConversation(blockChat int64) *gatedConversation {
	return &gatedConversation{
		blockChat: blockChat,
		started:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (c *gatedConversation) HandleText(_ context.Context, chatID int64, _ string) error {
	if chatID == c.blockChat {
		c.once.Do(func() { close(c.started) })
		<-c.release
	}
	c.mu.Lock()
	c.handled = append(c.handled, chatID)
	c.mu.Unlock()
	return nil
}

func (c *gatedConversation) handledChats() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.handled...)
}

func (c *gatedConversation) Start(context.Context, int64) error        { return nil }
func (c *gatedConversation) Help(context.Context, int64) error         { return nil }
func (c *gatedConversation) HandleCancel(context.Context, int64) error { return nil }
func (c *gatedConversation) HandleDate(context.Context, int64, time.Time) error {
	return nil
}
func (c *gatedConversation) Picker(context.Context, int64) (calendar.Picker, bool) {
	return calendar.Picker{}, false
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	msg := textMessage(text)
	msg.Chat = &tgbotapi.Chat{ID: chatID}
	return tgbotapi.Update{Message: msg}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunFullChatDoesNotStallOthers(t *testing.T) {
	b, api, _ := newTestBot(t)
	conv := newGatedConversation(1)
	b.dispatch = newDispatcher(1)
	api.updates = make(tgbotapi.UpdatesChannel)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx, conv)
		close(done)
	}()

	api.updates <- textUpdate(1, "first")
	<-conv.started
	api.updates <- textUpdate(1, "queued")
	api.updates <- textUpdate(1, "dropped")
	api.updates <- textUpdate(2, "other chat")

	waitFor(t, "chat 2 to be handled", func() bool {
		return cmp.Equal([]int64{2}, conv.handledChats())
	})

	var busy []sentMsg
	api.mu.Lock()
	for _, m := range api.sent {
		if m.Text == busyText {
			busy = append(busy, m)
		}
	}
	api.mu.Unlock()
	want := []sentMsg{{Kind: "message", ChatID: 1, Text: busyText}}
	if diff := cmp.Diff(want, busy); diff != "" {
		t.Errorf("busy replies (-want +got):\n%s", diff)
	}

	close(conv.release)
	waitFor(t, "chat 1 jobs", func() bool { return len(conv.handledChats()) == 3 })
	if diff := cmp.Diff([]int64{2, 1, 1}, conv.handledChats()); diff != "" {
		t.Errorf("handled chats (-want +got):\n%s", diff)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunWaitsForWorkersWhenUpdatesClose(t *testing.T) {
	b, api, _ := newTestBot(t)
	conv := newGatedConversation(1)
	api.updates = make(tgbotapi.UpdatesChannel, 1)
	api.updates <- textUpdate(1, "Москва")
	close(api.updates)

	done := make(chan struct{})
	go func() {
		b.Run(context.Background(), conv)
		close(done)
	}()

	<-conv.started
	select {
	case <-done:
		t.Fatal("Run returned while a chat worker was still busy")
	case <-time.After(50 * time.Millisecond):
	}

	close(conv.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the worker finished")
	}
	if diff := cmp.Diff([]int64{1}, conv.handledChats()); diff != "" {
		t.Errorf("handled chats (-want +got):\n%s", diff)
	}
}
