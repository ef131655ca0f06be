// Package mail defines the parsed-message value the mailbox providers
// consume. Transport (IMAP session, MIME decoding) happens behind the
// Source interface; the ingestion core only ever sees fetched messages.
package mail

import (
	"context"
	"time"

	"github.com/zasylogic/casebridge/internal/model"
)

// Message is one fetched, MIME-decoded mail.
type Message struct {
	Account     string             `json:"account"` // mailbox address the message arrived at
	Subject     string             `json:"subject"`
	From        string             `json:"from"`
	To          []string           `json:"to,omitempty"`
	Date        time.Time          `json:"date"`
	HTML        string             `json:"html,omitempty"`
	Text        string             `json:"text,omitempty"`
	Attachments []model.Attachment `json:"attachments,omitempty"`

	// SpoolFile names the backing spool file. Set by DirSource, consumed
	// by its Ack; not part of the wire shape.
	SpoolFile string `json:"-"`
}

// Source fetches the pending messages for a configured mailbox account.
// Implementations own the session lifecycle (connect, lock, iterate,
// logout) and must release the mailbox on every exit path.
type Source interface {
	Fetch(ctx context.Context, account model.ProviderAccount) ([]Message, error)
}

// Acker is implemented by sources that keep a fetched message until it
// is acknowledged. A message is acknowledged once its record has been
// handled; an unacknowledged message comes back on the next fetch
// instead of being lost.
type Acker interface {
	Ack(ctx context.Context, account model.ProviderAccount, msg Message) error
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, account model.ProviderAccount) ([]Message, error)

// Fetch implements Source.
func (f SourceFunc) Fetch(ctx context.Context, account model.ProviderAccount) ([]Message, error) {
	return f(ctx, account)
}
