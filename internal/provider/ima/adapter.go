// Package ima ingests notification mails from the IMA partner portal.
// The mails are thin triggers: a fixed subject plus an eight-digit
// service number. Everything else (client, address, coverage, budget) is
// pulled from the portal, which is scraped through its Inertia JSON
// endpoints because IMA exposes no real API.
package ima

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/mail"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider"
)

// Adapter runs one IMA mailbox account.
type Adapter struct {
	account model.ProviderAccount
	source  mail.Source
	client  *Client
	log     zerolog.Logger
}

// New builds an adapter over a mailbox source and the portal client.
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

// Authenticate verifies the portal login works before the run touches
// the mailbox. A broken portal session would otherwise surface as one
// skipped record per mail.
func (a *Adapter) Authenticate(ctx context.Context) (provider.Session, error) {
	if _, err := a.client.Login(ctx); err != nil {
		return nil, err
	}
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

// Normalize turns a notification mail into a full case record by looking
// the service up in the portal. Mails with no recognized subject are
// consumed silently (the mailbox also receives portal chatter); a failed
// lookup counts the mail as omitted and leaves it in the spool so the
// next run retries it.
func (a *Adapter) Normalize(ctx context.Context, raw provider.Raw) (*model.CaseRecord, error) {
	msg := raw.(mail.Message)

	action := AnalyzeMail(msg.Subject, msg.HTML, msg.Text)
	if action == nil {
		a.log.Info().Str("subject", msg.Subject).Msg("correo no clasificado")
		return nil, nil
	}
	a.log.Info().
		Str("action", action.Type).
		Str("servicio", action.ServiceNumber).
		Msg("correo clasificado")

	svc, rawSvc, language, err := a.client.SearchService(ctx, action.ServiceNumber)
	if err != nil {
		return nil, fmt.Errorf("servicio %s: %w", action.ServiceNumber, err)
	}

	typology := translate(language, svc.Typology.Name)
	if typology == "" {
		typology = "Sin Tipologia"
	}
	typology = strings.ToLower(typology)
	category := strings.ToLower(translate(language, svc.Category.Name))

	budget, err := a.client.BudgetLines(ctx, svc.ID, language)
	if err != nil {
		// The record is still usable without the budget breakdown.
		a.log.Error().Err(err).Int64("id", svc.ID).Msg("error obteniendo budget lines")
	}

	phones := SplitPhones(svc.ClientPhoneNumber)

	rec := &model.CaseRecord{
		ContractCode:          contractCode(svc.AccountReference),
		CaseState:             "Pendiente tramitar",
		CaseNumber:            svc.IMAProcessNumber,
		CaseDeclaration:       string(rawSvc),
		NotificationNumber:    svc.IMAProcessNumber,
		CaseType:              CaseTypeFor(typology, category),
		CaseDescription:       typology + " " + svc.ServiceCoverage + " " + svc.Observations,
		CaseDate:              svc.OpeningDate,
		IsUrgent:              svc.ServiceUrgency != 0,
		ClientName:            clientName(svc.ClientName),
		Address:               address(svc.Address),
		City:                  CityFromAddress(svc.Address),
		ZipCode:               svc.PostalCode,
		CountryISOCode:        "ES",
		PolicyNumber:          svc.ServiceInsurance.Name,
		CapabilityDescription: category,
		Classify:              action.Kind,
		Provider:              a.account.Name,
		Budget:                budget,
		Subject:               msg.Subject,
		From:                  msg.From,
		Date:                  msg.Date,
		RawSource:             rawSvc,
	}

	if len(phones) > 0 {
		rec.ClientPhone = phones[0]
	}
	if len(phones) > 1 {
		rec.ClientPhone2 = phones[1]
	}
	if len(svc.ServiceMessages) > 0 {
		rec.Message = svc.ServiceMessages[0].Message
	}
	return rec, nil
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

func contractCode(accountReference string) string {
	for _, r := range accountReference {
		if r == 'a' || r == 'A' {
			return "IM"
		}
	}
	return "PM"
}

func clientName(name string) string {
	if name == "" {
		return "-"
	}
	return name
}

func address(addr string) string {
	if addr == "" {
		return "-"
	}
	return addr
}
