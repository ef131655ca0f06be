// Package asitur ingests Asitur claim mails fetched over IMAP. Two mail
// shapes arrive in the same mailbox: first-assignment mails, which open a
// new case, and follow-up communications, which are classified by subject
// and forwarded downstream after being stored. Mails the classifier
// cannot route at all are handed to the unprocessable endpoint so a
// person can look at them.
package asitur

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/classify"
	"github.com/zasylogic/casebridge/internal/diaple"
	"github.com/zasylogic/casebridge/internal/mail"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/provider"
)

// defaultRecipients is the downstream inbox communications are addressed
// to.
var defaultRecipients = []string{"cuidacasa@diaple.com"}

// Adapter runs one Asitur mailbox account.
type Adapter struct {
	account model.ProviderAccount
	source  mail.Source
	api     diaple.API
	log     zerolog.Logger
}

// New builds an adapter over a mailbox source and the downstream API.
func New(account model.ProviderAccount, source mail.Source, api diaple.API, log zerolog.Logger) *Adapter {
	return &Adapter{
		account: account,
		source:  source,
		api:     api,
		log:     log.With().Str("provider", account.Name).Logger(),
	}
}

// Name returns the account's client name, the identity-key prefix.
func (a *Adapter) Name() string { return a.account.Name }

// Authenticate is a no-op: the mailbox session lives inside the source
// and the downstream token is cached by the API client.
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

// Normalize routes one mail: assignment mails become new case records,
// everything else goes through the communication flow. A communication
// that yields neither a type code nor a case reference is forwarded to
// the unprocessable endpoint and consumed here.
func (a *Adapter) Normalize(ctx context.Context, raw provider.Raw) (*model.CaseRecord, error) {
	msg := raw.(mail.Message)

	if classify.IsNewCase(newCasePatterns, msg.Subject) {
		return NewCaseRecord(msg, a.account.Username), nil
	}

	rec := MessageRecord(msg, a.account.Username)
	if rec.Classify == model.KindUnprocessable && rec.DedupRef == "" && rec.CaseNumber == "-" {
		if err := a.api.SubmitUnprocessable(ctx, unprocessablePayload{
			From:         msg.From,
			Date:         msg.Date,
			Subject:      msg.Subject,
			ContractCode: "",
		}); err != nil {
			return nil, err
		}
		a.log.Info().Str("subject", msg.Subject).Msg("correo enviado a unprocessable")
		return nil, nil
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

// Forward pushes a stored communication to the downstream inbound
// endpoint. New case records stay local; only messages travel.
func (a *Adapter) Forward(ctx context.Context, rec *model.CaseRecord) error {
	if rec.Classify != model.KindMessage {
		return nil
	}
	return a.api.SubmitInbound(ctx, inboundMessage{
		CaseLogTypeCode: rec.CaseTreatment,
		CaseNumber:      rec.CaseNumber,
		Content:         rec.Content,
		ContractCode:    rec.ContractCode,
		Date:            rec.Date,
		From:            rec.From,
		Subject:         rec.Subject,
		Tos:             defaultRecipients,
		Cccs:            []string{},
		Bccs:            []string{},
		Attachments:     rec.Attachments,
	})
}

// inboundMessage is the downstream wire shape for one communication.
type inboundMessage struct {
	CaseLogTypeCode string             `json:"caseLogTypeCode"`
	CaseNumber      string             `json:"caseNumber"`
	Content         string             `json:"content"`
	ContractCode    string             `json:"contractCode"`
	Date            time.Time          `json:"date"`
	From            string             `json:"from"`
	Subject         string             `json:"subject"`
	Tos             []string           `json:"tos"`
	Cccs            []string           `json:"cccs"`
	Bccs            []string           `json:"bccs"`
	Attachments     []model.Attachment `json:"attachments"`
}

// unprocessablePayload is the downstream wire shape for an unroutable
// mail.
type unprocessablePayload struct {
	From         string    `json:"from"`
	Date         time.Time `json:"date"`
	Subject      string    `json:"subject"`
	ContractCode string    `json:"contractCode"`
}
