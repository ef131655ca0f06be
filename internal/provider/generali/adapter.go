// Package generali ingests Generali assignment and dialog notifications.
// The mails carry a small XML document with identifiers only; the actual
// case content is fetched from the Generali claims API. When that
// enrichment fails, the record is still stored (tagged as an enrichment
// error) so nothing silently disappears.
package generali

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/mail"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider"
)

// Adapter runs one Generali mailbox account. The portal credentials for
// enrichment come from the account's enrich settings, not from the
// mailbox login.
type Adapter struct {
	account model.ProviderAccount
	source  mail.Source
	client  *Client
	log     zerolog.Logger
}

// New builds an adapter over a mailbox source and the claims API client.
func New(account model.ProviderAccount, source mail.Source, client *Client, log zerolog.Logger) *Adapter {
	return &Adapter{
		account: account,
		source:  source,
		client:  client,
		log:     log.With().Str("provider", account.Name).Logger(),
	}
}

// Name returns the account's client name, the identity-key prefix.
func (a *Adapter) Name() string { return a.account.Name }

// Authenticate is a no-op: the mailbox session lives inside the source
// and the claims API login happens per record.
func (a *Adapter) Authenticate(context.Context) (provider.Session, error) {
	return nil, nil
}

// FetchRaw pulls the pending mailbox messages.
func (a *Adapter) FetchRaw(ctx context.Context, _ provider.Session, _ model.RunOptions) ([]provider.Raw, error) {
	msgs, err := a.source.Fetch(ctx, a.account)
	if err != nil {
		return nil, err
	}
	raws := make([]provider.Raw, len(msgs))
	for i, m := range msgs {
		raws[i] = m
	}
	a.log.Info().Int("mensajes", len(raws)).Msg("correos obtenidos")
	return raws, nil
}

// Normalize routes one notification by subject: "nuevo encargo" opens a
// case, "nuevo diálogo" carries a communication, anything else is an
// unrecognized subject and counts as omitted.
func (a *Adapter) Normalize(ctx context.Context, raw provider.Raw) (*model.CaseRecord, error) {
	msg := raw.(mail.Message)
	subject := strings.ToLower(strings.TrimSpace(msg.Subject))

	switch {
	case strings.Contains(subject, "nuevo encargo"):
		return a.normalizeOrder(ctx, msg)
	case strings.Contains(subject, "nuevo diálogo"), strings.Contains(subject, "nuevo dialogo"):
		return a.normalizeDialog(ctx, msg)
	default:
		return nil, fmt.Errorf("asunto no reconocido: %q", msg.Subject)
	}
}

// Ack archives a handled mail on sources that hold messages until
// acknowledged.
func (a *Adapter) Ack(ctx context.Context, raw provider.Raw) error {
	ak, ok := a.source.(mail.Acker)
	if !ok {
		return nil
	}
	return ak.Ack(ctx, a.account, raw.(mail.Message))
}

func (a *Adapter) normalizeOrder(ctx context.Context, msg mail.Message) (*model.CaseRecord, error) {
	info, err := parseOrder(msg.Text)
	if err != nil {
		return nil, err
	}

	rec := a.baseRecord(msg, info.IDOrder, model.KindNew, "CASE")
	rec.RawSource = info.Raw

	detail, err := a.enrichOrder(ctx, info)
	if err != nil {
		a.log.Error().Err(err).Str("order", info.IDOrder).Msg("error obteniendo datos")
		rec.Classify = model.KindEnrichmentError
		rec.Message = err.Error()
		return rec, nil
	}
	rec.Content = strings.Join(detail.Observations, "\n")
	return rec, nil
}

func (a *Adapter) normalizeDialog(ctx context.Context, msg mail.Message) (*model.CaseRecord, error) {
	info, err := parseDialog(msg.Text)
	if err != nil {
		return nil, err
	}

	rec := a.baseRecord(msg, info.IDOrder, model.KindMessage, "DOCUMENT")
	rec.RawSource = info.Raw
	rec.CaseDescription = info.Issue

	thread, err := a.enrichDialog(ctx, info)
	if err != nil {
		a.log.Error().Err(err).Str("order", info.IDOrder).Msg("error obteniendo datos")
		rec.Classify = model.KindEnrichmentError
		rec.Message = err.Error()
		return rec, nil
	}

	lines := make([]string, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		lines = append(lines, m.Message)
	}
	rec.Content = strings.Join(lines, "\n")
	return rec, nil
}

func (a *Adapter) enrichOrder(ctx context.Context, info orderInfo) (OrderDetail, error) {
	token, err := a.login(ctx)
	if err != nil {
		return OrderDetail{}, err
	}
	return a.client.GetOrderDetail(ctx, token, orderAuth(info.IDOrder, info.Company, info.IDClaim, info.IDProfessional))
}

func (a *Adapter) enrichDialog(ctx context.Context, info dialogInfo) (DialogList, error) {
	token, err := a.login(ctx)
	if err != nil {
		return DialogList{}, err
	}
	return a.client.GetDialogList(ctx, token, orderAuth(info.IDOrder, info.Company, "", info.IDProfessional))
}

func (a *Adapter) login(ctx context.Context) (string, error) {
	return a.client.Login(ctx, a.account.EnrichCompany, a.account.EnrichUser, a.account.EnrichPassword)
}

func (a *Adapter) baseRecord(msg mail.Message, caseNumber string, kind model.CaseKind, logType string) *model.CaseRecord {
	return &model.CaseRecord{
		ContractCode:  Prefijo(a.account.EnrichUser, a.account.Username),
		CompanyName:   "Generali",
		CaseNumber:    caseNumber,
		CaseTreatment: logType,
		CaseDate:      msg.Date.UTC().Format(time.RFC3339),
		Classify:      kind,
		Subject:       msg.Subject,
		From:          msg.From,
		Date:          msg.Date,
		Attachments:   msg.Attachments,
	}
}

func orderAuth(orderID, company, claim, professional string) OrderAuth {
	return OrderAuth{
		OrderID:        orderID,
		Company:        company,
		ClaimNumber:    claim,
		ProfessionalID: professional,
	}
}
