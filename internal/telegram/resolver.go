package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/peers"
	"github.com/gotd/td/tg"

	"github.com/itssu4012650/ur-mwe/pkg/logger"
)

// Resolver looks up access hashes for peers seen without entities. Its
// update hook stores every user and chat passing through the updates
// manager, so most lookups are served from memory.
type Resolver struct {
	peers *peers.Manager
	api   *tg.Client
}

func NewResolver(api *tg.Client) *Resolver {
	return &Resolver{
		peers: peers.Options{}.Build(api),
		api:   api,
	}
}

// UpdateHook wraps next so that entities of every update are collected.
func (r *Resolver) UpdateHook(next telegram.UpdateHandler) telegram.UpdateHandler {
	return r.peers.UpdateHook(next)
}

// ResolveMessagePeer resolves msg.PeerID through the peer cache. On a miss
// the message is fetched again, which returns its users with access hashes.
func (r *Resolver) ResolveMessagePeer(ctx context.Context, msg *tg.Message) (tg.InputPeerClass, error) {
	p, err := r.peers.ResolvePeer(ctx, msg.PeerID)
	if err == nil {
		return p.InputPeer(), nil
	}

	user, ok := msg.PeerID.(*tg.PeerUser)
	if !ok {
		return nil, fmt.Errorf("resolve peer failed: %w", err)
	}
	logger.Debug("Peer cache miss, refetching message", "user_id", user.UserID, "msg_id", msg.ID, "error", err)

	res, err := r.api.MessagesGetMessages(ctx, []tg.InputMessageClass{&tg.InputMessageID{ID: msg.ID}})
	if err != nil {
		return nil, fmt.Errorf("refetch message %d failed: %w", msg.ID, err)
	}
	_, users, chats, err := unpackMessages(res)
	if err != nil {
		return nil, err
	}
	if err := r.peers.Apply(ctx, users, chats); err != nil {
		logger.Warn("Failed to store peers", "error", err)
	}
	return userFromList(users, user.UserID)
}

func userFromList(users []tg.UserClass, id int64) (tg.InputPeerClass, error) {
	for _, u := range users {
		if full, ok := u.(*tg.User); ok && full.ID == id {
			return full.AsInputPeer(), nil
		}
	}
	return nil, fmt.Errorf("user %d: %w", id, ErrPeerNotInEntities)
}

func unpackMessages(res tg.MessagesMessagesClass) ([]tg.MessageClass, []tg.UserClass, []tg.ChatClass, error) {
	switch r := res.(type) {
	case *tg.MessagesMessages:
		return r.Messages, r.Users, r.Chats, nil
	case *tg.MessagesMessagesSlice:
		return r.Messages, r.Users, r.Chats, nil
	case *tg.MessagesChannelMessages:
		return r.Messages, r.Users, r.Chats, nil
	default:
		return nil, nil, nil, fmt.Errorf("unexpected response %T", res)
	}
}
