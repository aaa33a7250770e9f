package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dragonflychat/internal/domain/entity"
	"dragonflychat/pkg/errors"
)

var (
	clockMu  sync.Mutex
	lastTick time.Time
)

// now is truncated to milliseconds, the precision of the realtime store, so a message
// reads back identical from either store. Successive calls never return the same
// instant, which keeps messages sent through one process in send order.
func now() time.Time {
	clockMu.Lock()
	defer clockMu.Unlock()

	t := time.Now().UTC().Truncate(time.Millisecond)
	if !t.After(lastTick) {
		t = lastTick.Add(time.Millisecond)
	}
	lastTick = t
	return t
}

func requireCaller(ctx context.Context, resolver IdentityResolver) (*entity.Identity, error) {
	id, err := resolver.Identity(ctx)
	if err != nil || !id.Authenticated() {
		return nil, errors.NotAuthenticated("No signed-in user")
	}
	return id, nil
}

func senderName(id *entity.Identity) string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	if at := strings.Index(id.Email, "@"); at > 0 {
		return id.Email[:at]
	}
	return id.Email
}

// prepareMessage fills the fields a caller may leave out. The sender fields default to
// the given identity.
func prepareMessage(msg *entity.Message, conversationID string, sender *entity.Identity, role string) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.ChatID = conversationID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now()
	} else {
		msg.Timestamp = msg.Timestamp.UTC().Truncate(time.Millisecond)
	}
	if msg.SenderUID == "" {
		msg.SenderUID = sender.UID
	}
	if msg.SenderName == "" {
		msg.SenderName = senderName(sender)
	}
	if msg.SenderRole == "" {
		msg.SenderRole = role
	}
}
