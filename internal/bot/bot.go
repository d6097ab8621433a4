package bot

import (
	"context"

	"github.com/itssu4012650/ur-mwe/internal/telegram"
)

type Bot struct {
	client *telegram.Client
}

func New(client *telegram.Client) *Bot {
	return &Bot{
		client: client,
	}
}

// Run blocks until ctx is canceled or the connection fails.
func (b *Bot) Run(ctx context.Context) error {
	return b.client.Start(ctx)
}
