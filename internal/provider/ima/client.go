package ima

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the IMA partner portal; tests point elsewhere.
const DefaultBaseURL = "https://tooltoimaiberica.es"

// The portal is an Inertia app and rejects requests without the version
// fingerprint its frontend sends.
const inertiaVersion = "41e99b313296a6112f292ea12eaf57a5"

// Client drives the IMA partner portal the way a browser session does:
// fetch the XSRF cookie, log in with it, then call the JSON endpoints
// with the refreshed token. There is no API token; the session lives in
// the cookie jar.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	jar        http.CookieJar
	limiter    *rate.Limiter
}

// NewClient builds an IMA portal client. A cookie jar is installed on
// the HTTP client; pass a dedicated client, not a shared one.
func NewClient(baseURL, username, password string, httpClient *http.Client, limiter *rate.Limiter) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	httpClient.Jar = jar
	return &Client{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: httpClient,
		jar:        jar,
		limiter:    limiter,
	}, nil
}

// Login performs the XSRF dance and returns the post-login token. Called
// before every portal query; the portal invalidates idle sessions fast
// enough that reusing one is not worth the bookkeeping.
func (c *Client) Login(ctx context.Context) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	loginURL := c.baseURL + "/login"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch login page: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	token := c.xsrfToken(loginURL)
	if token == "" {
		return "", fmt.Errorf("login: XSRF-TOKEN cookie not set")
	}

	body, _ := json.Marshal(map[string]string{
		"email":    c.username,
		"password": c.password,
		"remember": "",
	})
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setPortalHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err = c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	// The login response rotates the token; fall back to the pre-login
	// one when it does not.
	if after := c.xsrfToken(c.baseURL); after != "" {
		token = after
	}
	return token, nil
}

// Service is one IMA service as the portal search returns it.
type Service struct {
	ID                int64     `json:"id"`
	IMAProcessNumber  string    `json:"ima_process_number"`
	AccountReference  string    `json:"account_reference"`
	Typology          NameRef   `json:"typology"`
	Category          NameRef   `json:"category"`
	ServiceCoverage   string    `json:"service_coverage"`
	Observations      string    `json:"observations"`
	OpeningDate       string    `json:"opening_date"`
	ServiceUrgency    int       `json:"service_urgency"`
	ClientName        string    `json:"client_name"`
	ClientPhoneNumber string    `json:"client_phone_number"`
	Address           string    `json:"address"`
	PostalCode        string    `json:"postal_code"`
	ServiceInsurance  NameRef   `json:"service_insurance"`
	ServiceMessages   []Message `json:"service_messages"`
}

// NameRef is the {name} sub-object the portal uses for lookups.
type NameRef struct {
	Name string `json:"name"`
}

// Message is one entry of a service's message thread.
type Message struct {
	Message string `json:"message"`
}

type servicesResponse struct {
	Props struct {
		Services struct {
			Data []json.RawMessage `json:"data"`
		} `json:"services"`
		Language map[string]string `json:"language"`
	} `json:"props"`
}

// SearchService looks a service up by its process number. Returns the
// decoded service, its raw JSON (kept for the audit column) and the
// portal's translation table.
func (c *Client) SearchService(ctx context.Context, code string) (Service, json.RawMessage, map[string]string, error) {
	token, err := c.Login(ctx)
	if err != nil {
		return Service{}, nil, nil, err
	}
	if err := c.wait(ctx); err != nil {
		return Service{}, nil, nil, err
	}

	q := url.Values{}
	q.Set("per_page", "10")
	q.Set("search", code)
	q.Set("start_date", "")
	q.Set("end_date", "")
	q.Set("order_by", "desc")
	q.Set("order_field", "ima_process_number")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/services?"+q.Encode(), nil)
	if err != nil {
		return Service{}, nil, nil, err
	}
	c.setPortalHeaders(req, token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Service{}, nil, nil, fmt.Errorf("search service %s: %w", code, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Service{}, nil, nil, fmt.Errorf("search service %s: unexpected status %d", code, resp.StatusCode)
	}

	var sr servicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Service{}, nil, nil, fmt.Errorf("decode services: %w", err)
	}
	if len(sr.Props.Services.Data) == 0 {
		return Service{}, nil, nil, fmt.Errorf("service %s not found", code)
	}

	raw := sr.Props.Services.Data[0]
	var svc Service
	if err := json.Unmarshal(raw, &svc); err != nil {
		return Service{}, nil, nil, fmt.Errorf("decode service: %w", err)
	}
	return svc, raw, sr.Props.Language, nil
}

type budgetLinesResponse struct {
	BudgetLines []budgetLine `json:"budget_lines"`
}

type budgetLine struct {
	Tariff struct {
		Category NameRef     `json:"category"`
		Code     string      `json:"code"`
		Desc     string      `json:"description"`
		Value    json.Number `json:"value"`
	} `json:"tariff"`
	Qty          json.Number `json:"qty"`
	TotalValue   json.Number `json:"total_value"`
	State        string      `json:"state"`
	Responsible  NameRef     `json:"responsible"`
	Date         string      `json:"date"`
	Sender       string      `json:"sender"`
	Observations string      `json:"observations"`
}

// BudgetRow is one budget line shaped for the downstream reader, Spanish
// column names included.
type BudgetRow struct {
	Categoria     string `json:"Categoría"`
	Codigo        string `json:"Código"`
	Descripcion   string `json:"Descripción"`
	Valor         string `json:"Valor"`
	Cantidad      string `json:"Cant."`
	Total         string `json:"Total"`
	Estado        string `json:"Estado"`
	Ent           string `json:"Ent"`
	Fecha         string `json:"Fecha"`
	Resp          string `json:"Resp"`
	Observaciones string `json:"Observaciones"`
}

// BudgetLines fetches and shapes the budget lines of a service.
func (c *Client) BudgetLines(ctx context.Context, serviceID int64, language map[string]string) ([]BudgetRow, error) {
	token, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/services/%d/get-budget-lines", c.baseURL, serviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	c.setPortalHeaders(req, token)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("budget lines: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("budget lines: unexpected status %d", resp.StatusCode)
	}

	var br budgetLinesResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("decode budget lines: %w", err)
	}

	rows := make([]BudgetRow, 0, len(br.BudgetLines))
	for _, l := range br.BudgetLines {
		rows = append(rows, BudgetRow{
			Categoria:     translate(language, l.Tariff.Category.Name),
			Codigo:        l.Tariff.Code,
			Descripcion:   l.Tariff.Desc,
			Valor:         money(l.Tariff.Value),
			Cantidad:      money(l.Qty),
			Total:         money(l.TotalValue),
			Estado:        translateState(l.State),
			Ent:           translate(language, l.Responsible.Name),
			Fecha:         datePart(l.Date),
			Resp:          translateSender(l.Sender),
			Observaciones: l.Observations,
		})
	}
	return rows, nil
}

func (c *Client) setPortalHeaders(req *http.Request, token string) {
	req.Header.Set("X-XSRF-TOKEN", token)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Inertia", "true")
	req.Header.Set("X-Inertia-Version", inertiaVersion)
	req.Header.Set("User-Agent", "Mozilla/5.0")
}

func (c *Client) xsrfToken(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.jar.Cookies(u) {
		if ck.Name == "XSRF-TOKEN" {
			if v, err := url.QueryUnescape(ck.Value); err == nil {
				return v
			}
			return ck.Value
		}
	}
	return ""
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// translate maps a portal language key to its label, keeping the key
// when no translation exists.
func translate(language map[string]string, key string) string {
	if v, ok := language[key]; ok && v != "" {
		return v
	}
	return key
}

func translateState(state string) string {
	switch state {
	case "A":
		return "Aceptado"
	case "R":
		return "Rechazado"
	case "P":
		return "Pendiente"
	}
	return state
}

func translateSender(sender string) string {
	switch sender {
	case "P":
		return "PROVEEDOR"
	case "I":
		return "IMA"
	}
	return sender
}

func money(n json.Number) string {
	f, err := n.Float64()
	if err != nil {
		f = 0
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func datePart(s string) string {
	if i := len(s); i > 10 {
		return s[:10]
	}
	return s
}
