// Package multiasistencia ingests newly assigned services from the
// MultiAsistencia REST API. Unlike the mail-driven providers, the upstream
// is polled: every service the listing returns is a new assignment, so
// all records classify as new and deduplication does the rest.
package multiasistencia

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider"
)

// Adapter runs one MultiAsistencia account. Instances are created per run
// and are not shared: FetchRaw records the run's date window for the
// Normalize filter.
type Adapter struct {
	account model.ProviderAccount
	client  *Client
	log     zerolog.Logger
	now     func() time.Time

	from, to time.Time
}

// New builds an adapter for one account.
func New(account model.ProviderAccount, client *Client, log zerolog.Logger) *Adapter {
	return &Adapter{
		account: account,
		client:  client,
		log:     log.With().Str("provider", account.Name).Logger(),
		now:     time.Now,
	}
}

// Name returns the account's client name, the identity-key prefix.
func (a *Adapter) Name() string { return a.account.Name }

// Authenticate logs in and returns the PHP session id.
func (a *Adapter) Authenticate(ctx context.Context) (provider.Session, error) {
	return a.client.Login(ctx, a.account.Username, a.account.Password)
}

// FetchRaw lists the pending new services and pins the run's date window.
func (a *Adapter) FetchRaw(ctx context.Context, sess provider.Session, opts model.RunOptions) ([]provider.Raw, error) {
	a.from, a.to = opts.Window(a.now())

	servicios, err := a.client.FetchServices(ctx, sess.(string))
	if err != nil {
		return nil, err
	}

	raws := make([]provider.Raw, len(servicios))
	for i, s := range servicios {
		raws[i] = s
	}
	a.log.Info().Int("servicios", len(raws)).Msg("servicios obtenidos")
	return raws, nil
}

// Normalize shapes one service, dropping those assigned outside the run
// window. The listing is cumulative upstream, so out-of-window services
// are expected, not an error.
func (a *Adapter) Normalize(_ context.Context, raw provider.Raw) (*model.CaseRecord, error) {
	s := raw.(Servicio)

	if at, err := AssignedAt(s); err == nil {
		if at.Before(a.from) || at.After(a.to) {
			return nil, nil
		}
	}
	return ToCaseRecord(s, a.account.Name, a.now()), nil
}
