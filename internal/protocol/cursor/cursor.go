package cursor

import "boxchat/internal/domain"

// Cursor is the highest message id observed so far.
type Cursor domain.MessageID

// Advance returns max(c, max(ids)). With no ids it returns c unchanged, and
// out-of-order or duplicate ids never move it backwards.
func (c Cursor) Advance(ids ...domain.MessageID) Cursor {
	next := c
	for _, id := range ids {
		if Cursor(id) > next {
			next = Cursor(id)
		}
	}
	return next
}

// SinceID is the value to send as since_id on the next fetch.
func (c Cursor) SinceID() domain.MessageID { return domain.MessageID(c) }

// AdvanceMessages advances c over the ids of msgs.
func (c Cursor) AdvanceMessages(msgs []domain.InboundMessage) Cursor {
	next := c
	for _, m := range msgs {
		next = next.Advance(m.ID)
	}
	return next
}
