package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type discordSession interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type discordMessage struct {
	playerID string
	content  string
}

// Discord delivers notifications as direct messages. Player ids are Discord
// user ids. Sends happen on a background goroutine so game operations never
// wait on the chat API; when the queue is full the message is dropped.
type Discord struct {
	session discordSession
	log     *slog.Logger
	queue   chan discordMessage
	done    chan struct{}

	mu       sync.Mutex
	channels map[string]string
	closed   bool
}

func NewDiscord(token string, logger *slog.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return newDiscord(session, logger, 256), nil
}

func newDiscord(session discordSession, logger *slog.Logger, queueSize int) *Discord {
	d := &Discord{
		session:  session,
		log:      logger,
		queue:    make(chan discordMessage, queueSize),
		done:     make(chan struct{}),
		channels: make(map[string]string),
	}
	go d.run()
	return d
}

func (d *Discord) Notify(_ context.Context, playerID, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- discordMessage{playerID: playerID, content: message}:
	default:
		d.log.Warn("discord queue full, dropping notification", "player_id", playerID)
	}
}

// Close stops accepting messages and waits for the queue to drain.
func (d *Discord) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}

func (d *Discord) run() {
	defer close(d.done)
	for msg := range d.queue {
		if err := d.send(msg); err != nil {
			d.log.Error("discord notification failed", "player_id", msg.playerID, "err", err)
		}
	}
}

func (d *Discord) send(msg discordMessage) error {
	channelID, err := d.dmChannel(msg.playerID)
	if err != nil {
		return err
	}
	_, err = d.session.ChannelMessageSend(channelID, msg.content)
	return err
}

func (d *Discord) dmChannel(playerID string) (string, error) {
	d.mu.Lock()
	id, ok := d.channels[playerID]
	d.mu.Unlock()
	if ok {
		return id, nil
	}
	ch, err := d.session.UserChannelCreate(playerID)
	if err != nil {
		return "", fmt.Errorf("open dm channel: %w", err)
	}
	d.mu.Lock()
	d.channels[playerID] = ch.ID
	d.mu.Unlock()
	return ch.ID, nil
}
