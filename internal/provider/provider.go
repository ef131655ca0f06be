// Package provider defines the adapter contract every upstream source
// implements, and the static registry the orchestrator resolves adapters
// from.
package provider

import (
	"context"

	"github.com/zasylogic/casebridge/internal/model"
)

// Session is whatever an adapter's Authenticate hands back: a session id,
// a bearer token, or nil for adapters that authenticate inside FetchRaw.
type Session any

// Raw is one provider-specific record as fetched: a decoded JSON object,
// a parsed mail, an XML document. It only travels from FetchRaw to
// Normalize and is discarded afterwards.
type Raw any

// Adapter is the polymorphic contract over one upstream source.
//
// Failure semantics: Authenticate and FetchRaw failures abort the whole
// run (reported as a failed run, not as omissions); a Normalize failure
// affects only that record. Normalize may return (nil, nil) for records
// the adapter consumed itself (out of the date window, forwarded straight
// downstream); those count neither as processed nor omitted.
type Adapter interface {
	Name() string
	Authenticate(ctx context.Context) (Session, error)
	FetchRaw(ctx context.Context, sess Session, opts model.RunOptions) ([]Raw, error)
	Normalize(ctx context.Context, raw Raw) (*model.CaseRecord, error)
}

// Acker is implemented by adapters whose raw records need an explicit
// acknowledgement once handled. The orchestrator acknowledges every
// record except those whose Normalize failed, so a broken message is
// delivered again on the next run instead of being lost.
type Acker interface {
	Ack(ctx context.Context, raw Raw) error
}

// Forwarder is implemented by adapters whose records are pushed to the
// downstream case-management API once stored. Forward runs only for
// records that were actually inserted; a forward failure is logged but
// does not undo the stored record.
type Forwarder interface {
	Forward(ctx context.Context, rec *model.CaseRecord) error
}
