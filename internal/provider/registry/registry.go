// Package registry resolves configured provider accounts to their
// adapters. The mapping is a static table on purpose: the set of
// supported upstreams changes with a code change anyway, and an explicit
// table is greppable where init-time self-registration is not.
package registry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/zasylogic/casebridge/internal/diaple"
	"github.com/zasylogic/casebridge/internal/mail"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider"
	"github.com/zasylogic/casebridge/internal/provider/asitur"
	"github.com/zasylogic/casebridge/internal/provider/generali"
	"github.com/zasylogic/casebridge/internal/provider/ima"
	"github.com/zasylogic/casebridge/internal/provider/multiasistencia"
	"github.com/zasylogic/casebridge/internal/worker"
)

// Deps carries the shared collaborators adapters are wired with. Mail and
// Downstream are interfaces so tests can resolve real adapters against
// fakes.
type Deps struct {
	Mail       mail.Source
	Downstream diaple.API
	HTTP       *http.Client
	Limits     *worker.Limiter
	Log        zerolog.Logger
}

func (d Deps) limiterFor(rawURL string) *rate.Limiter {
	if d.Limits == nil {
		return nil
	}
	return d.Limits.For(rawURL)
}

type factory func(model.ProviderAccount, Deps) (provider.Adapter, error)

var factories = map[string]factory{
	"multiasistencia": newMultiasistencia,
	"asitur":          newAsitur,
	"generali":        newGenerali,
	"ima":             newIMA,
}

// Resolve builds the adapter for one configured account. The account's
// provider field selects the factory, case-insensitively.
func Resolve(account model.ProviderAccount, deps Deps) (provider.Adapter, error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(account.Provider))]
	if !ok {
		return nil, fmt.Errorf("account %s: unknown provider %q", account.Name, account.Provider)
	}
	return f(account, deps)
}

// Available lists the supported provider names, sorted.
func Available() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newMultiasistencia(account model.ProviderAccount, deps Deps) (provider.Adapter, error) {
	client := multiasistencia.NewClient("", account.APIToken, deps.HTTP, deps.limiterFor(multiasistencia.DefaultBaseURL))
	return multiasistencia.New(account, client, deps.Log), nil
}

func newAsitur(account model.ProviderAccount, deps Deps) (provider.Adapter, error) {
	if deps.Downstream == nil {
		return nil, fmt.Errorf("account %s: asitur requires the downstream API", account.Name)
	}
	return asitur.New(account, deps.Mail, deps.Downstream, deps.Log), nil
}

func newGenerali(account model.ProviderAccount, deps Deps) (provider.Adapter, error) {
	client := generali.NewClient("", "", deps.HTTP, deps.limiterFor(generali.DefaultConsultBaseURL))
	return generali.New(account, deps.Mail, client, deps.Log), nil
}

func newIMA(account model.ProviderAccount, deps Deps) (provider.Adapter, error) {
	// The IMA client installs a cookie jar, so it gets its own HTTP
	// client rather than the shared one.
	client, err := ima.NewClient("", account.EnrichUser, account.EnrichPassword, nil, deps.limiterFor(ima.DefaultBaseURL))
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", account.Name, err)
	}
	return ima.New(account, deps.Mail, client, deps.Log), nil
}
