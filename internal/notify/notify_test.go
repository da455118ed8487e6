package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu       sync.Mutex
	opened   []string
	sent     map[string][]string
	failUser string
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if recipientID == f.failUser {
		return nil, errors.New("cannot dm user")
	}
	f.opened = append(f.opened, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[string][]string)
	}
	f.sent[channelID] = append(f.sent[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDiscordSendsDirectMessages(t *testing.T) {
	session := &fakeSession{failUser: "blocked"}
	d := newDiscord(session, discardLogger(), 16)
	ctx := context.Background()

	d.Notify(ctx, "111", "Achievement unlocked")
	d.Notify(ctx, "111", "Daily challenge complete")
	d.Notify(ctx, "blocked", "lost")
	d.Notify(ctx, "222", "Your shop was sabotaged")
	d.Close()

	assert.Equal(t, []string{"Achievement unlocked", "Daily challenge complete"}, session.sent["dm-111"])
	assert.Equal(t, []string{"Your shop was sabotaged"}, session.sent["dm-222"])
	assert.Equal(t, []string{"111", "222"}, session.opened, "dm channels are cached")

	d.Notify(ctx, "111", "after close")
	d.Close()
	assert.Len(t, session.sent["dm-111"], 2)
}

type recorder struct {
	got []string
}

func (r *recorder) Notify(_ context.Context, playerID, message string) {
	r.got = append(r.got, playerID+":"+message)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b, NewLog(discardLogger())}
	m.Notify(context.Background(), "p1", "hello")
	require.Equal(t, []string{"p1:hello"}, a.got)
	require.Equal(t, []string{"p1:hello"}, b.got)
}
