package telegram

import (
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
)

// Transfer moves files between the server and chats over MTProto.
type Transfer struct {
	api             *tg.Client
	sender          *message.Sender
	downloadThreads int
	uploadThreads   int
}

func NewTransfer(api *tg.Client, downloadThreads, uploadThreads int) *Transfer {
	if downloadThreads < 1 {
		downloadThreads = 1
	}
	if uploadThreads < 1 {
		uploadThreads = 1
	}
	return &Transfer{
		api:             api,
		sender:          message.NewSender(api),
		downloadThreads: downloadThreads,
		uploadThreads:   uploadThreads,
	}
}

// Editor returns an Editor for the message msgID in peer.
func (t *Transfer) Editor(peer tg.InputPeerClass, msgID int) Editor {
	return NewMessageEditor(t.sender, peer, msgID)
}
