package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/tg"
)

// ErrPeerNotInEntities is returned by ResolvePeer when the update carried no
// access hash for the peer. Short updates never carry entities.
var ErrPeerNotInEntities = errors.New("peer not found in entities")

// PeerResolver finds the input peer of a message whose update carried no
// entities.
type PeerResolver interface {
	ResolveMessagePeer(ctx context.Context, msg *tg.Message) (tg.InputPeerClass, error)
}

// ResolvePeer converts a PeerClass to InputPeerClass using the update's
// entities. Messages in the owner's own chat resolve to InputPeerSelf and
// basic groups need no access hash.
func ResolvePeer(peer tg.PeerClass, entities tg.Entities, selfID int64) (tg.InputPeerClass, error) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		if selfID != 0 && p.UserID == selfID {
			return &tg.InputPeerSelf{}, nil
		}
		user, ok := entities.Users[p.UserID]
		if !ok {
			return nil, fmt.Errorf("user %d: %w", p.UserID, ErrPeerNotInEntities)
		}
		return &tg.InputPeerUser{
			UserID:     user.ID,
			AccessHash: user.AccessHash,
		}, nil
	case *tg.PeerChat:
		return &tg.InputPeerChat{
			ChatID: p.ChatID,
		}, nil
	case *tg.PeerChannel:
		channel, ok := entities.Channels[p.ChannelID]
		if !ok {
			return nil, fmt.Errorf("channel %d: %w", p.ChannelID, ErrPeerNotInEntities)
		}
		return &tg.InputPeerChannel{
			ChannelID:  channel.ID,
			AccessHash: channel.AccessHash,
		}, nil
	default:
		return nil, fmt.Errorf("unknown peer type: %T", peer)
	}
}

// ReplyToID returns the ID of the message msg replies to, or zero.
func ReplyToID(msg *tg.Message) int {
	if msg == nil {
		return 0
	}
	hdr, ok := msg.ReplyTo.(*tg.MessageReplyHeader)
	if !ok {
		return 0
	}
	return hdr.ReplyToMsgID
}
