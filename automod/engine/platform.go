package engine

import (
	"context"
	"errors"
	"time"

	"github.com/doxguard/doxguard/automod/modqueue"
)

var (
	// The referenced content (or user, or channel) no longer exists.
	ErrNotFound = errors.New("not found on chat platform")
	// The daemon lacks permission for the requested action.
	ErrForbidden = errors.New("forbidden by chat platform")
)

// A chat message, as fetched from the platform.
type Message struct {
	Ref       modqueue.ContentRef
	Content   string
	CreatedAt time.Time
}

// Chat transport used by triage, review sessions and the disposition executor.
//
// Implementations return ErrNotFound or ErrForbidden (possibly wrapped) for those conditions, so callers can tell a stale reference or a permission problem from a transport failure.
type Platform interface {
	FetchMessage(ctx context.Context, ref modqueue.ContentRef) (*Message, error)
	DeleteMessage(ctx context.Context, ref modqueue.ContentRef) error
	// Resolves a message link, as pasted by a reporter.
	ResolveLink(ctx context.Context, link string) (*Message, error)
	// Sends a direct message. entry is optional and rendered as a card.
	SendDirect(ctx context.Context, userID, text string, entry *LogEntry) error
	PostChannel(ctx context.Context, channelID, text string) error
	// Posts to the moderation log of a community.
	PostModLog(ctx context.Context, communityID string, entry *LogEntry) error
}
