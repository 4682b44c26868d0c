package unread

import (
	"context"
	"time"

	"chatline/logger"
	"chatline/module/chat/store"
	"chatline/tools/errs"
)

// Invalidator lets mark-read drop stale cached history; the message
// cache satisfies it, tests pass nil.
type Invalidator interface {
	Invalidate(ctx context.Context, conversationID string)
}

// Accountant derives unread counts from the message store and the
// per-user watermarks kept on conversations. Counts are never cached:
// they recompute from source data, which is what makes the non-atomic
// mark-read below self-healing.
type Accountant struct {
	convs store.ConversationStore
	msgs  store.MessageStore
	cache Invalidator
	clock func() time.Time
}

func NewAccountant(convs store.ConversationStore, msgs store.MessageStore, cache Invalidator) *Accountant {
	return &Accountant{convs: convs, msgs: msgs, cache: cache, clock: time.Now}
}

// Count returns the number of messages in the conversation authored by
// others, not yet read, and newer than the user's watermark. No
// watermark means "never read": everything qualifying counts.
func (a *Accountant) Count(ctx context.Context, conversationID, userID string) (int64, error) {
	conv, err := a.convs.Get(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	after, _ := conv.LastSeen(userID)
	return a.msgs.CountUnread(ctx, conversationID, userID, after)
}

// CountFailure records one conversation whose count could not be
// computed during an aggregate.
type CountFailure struct {
	ConversationID string
	Err            error
}

// Total sums Count over every conversation the user participates in.
// One conversation failing contributes zero and is reported in the
// failure list; the aggregate still returns the best-effort sum.
func (a *Accountant) Total(ctx context.Context, userID string) (int64, []CountFailure, error) {
	convs, err := a.convs.ListByParticipant(ctx, userID)
	if err != nil {
		return 0, nil, err
	}

	var total int64
	var failures []CountFailure
	for _, conv := range convs {
		after, _ := conv.LastSeen(userID)
		n, cerr := a.msgs.CountUnread(ctx, conv.ID, userID, after)
		if cerr != nil {
			logger.Warnf("[unread] count conv=%s user=%s err=%v", conv.ID, userID, cerr)
			failures = append(failures, CountFailure{ConversationID: conv.ID, Err: cerr})
			continue
		}
		total += n
	}
	return total, failures, nil
}

// MarkRead stamps the user's watermark and flips unseen messages from
// other senders to read. Two separate document mutations with no
// cross-document atomicity: a crash in between leaves one side updated,
// and the next Count recomputes correctly from whichever state stuck.
func (a *Accountant) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := a.convs.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return errs.ErrAuthorization.WrapMsg("mark read", "conversation", conversationID, "user", userID)
	}

	if err := a.convs.SetLastSeen(ctx, conversationID, userID, a.clock()); err != nil {
		return err
	}
	n, err := a.msgs.MarkRead(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if n > 0 && a.cache != nil {
		a.cache.Invalidate(ctx, conversationID)
	}
	return nil
}
