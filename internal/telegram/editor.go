package telegram

import (
	"context"
	"sync"

	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/html"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

// Editor rewrites the text of one status message. Text is HTML.
type Editor interface {
	Edit(ctx context.Context, text string) error
}

// MessageEditor edits a message in place and skips edits that would not
// change its text.
type MessageEditor struct {
	sender *message.Sender
	peer   tg.InputPeerClass
	msgID  int

	mu   sync.Mutex
	last string
}

func NewMessageEditor(sender *message.Sender, peer tg.InputPeerClass, msgID int) *MessageEditor {
	return &MessageEditor{
		sender: sender,
		peer:   peer,
		msgID:  msgID,
	}
}

func (e *MessageEditor) Edit(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if text == e.last {
		return nil
	}

	_, err := e.sender.To(e.peer).Edit(e.msgID).StyledText(ctx, html.String(nil, text))
	if err != nil && !tgerr.Is(err, "MESSAGE_NOT_MODIFIED") {
		return err
	}
	e.last = text
	return nil
}
