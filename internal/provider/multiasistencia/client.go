package multiasistencia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production MultiAsistencia endpoint; tests point
// the client elsewhere.
const DefaultBaseURL = "https://api.registradoresma.com/multiasistencia/1.1.0"

var sessionRe = regexp.MustCompile(`PHPSESSID=([^&\s;]+)`)

// Client talks to the MultiAsistencia services API. The API token
// authorizes the integration; the username/password login yields a PHP
// session id that scopes the service listing.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a MultiAsistencia client. limiter may be nil.
func NewClient(baseURL, apiToken string, httpClient *http.Client, limiter *rate.Limiter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, apiToken: apiToken, httpClient: httpClient, limiter: limiter}
}

// Login authenticates and returns the session id scraped from the login
// response body.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	m := sessionRe.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("login: PHPSESSID not found in response")
	}
	return string(m[1]), nil
}

// Telefono is one client phone entry of a service.
type Telefono struct {
	Numero string `json:"Numero"`
	Tipo   string `json:"Tipo"`
}

// Servicio is one raw service as the new-services endpoint returns it.
type Servicio struct {
	Profesional           int        `json:"Profesional"`
	Servicio              int64      `json:"Servicio"`
	Referencia            string     `json:"Referencia"`
	Direccion             string     `json:"Direccion"`
	Procedencia           string     `json:"Procedencia"`
	Gremio                string     `json:"Gremio"`
	Estado                string     `json:"Estado"`
	FechaHoraAsignacion   string     `json:"FechaHoraAsignacion"`
	NumeroPoliza          string     `json:"NumeroPoliza"`
	NombreCliente         string     `json:"NombreCliente"`
	DistritoPostal        string     `json:"DistritoPostal"`
	DescripcionReparacion string     `json:"DescripcionReparacion"`
	Urgente               string     `json:"Urgente"`
	TelefonoCliente       []Telefono `json:"TelefonoCliente"`
}

type serviciosResponse struct {
	Servicios []Servicio `json:"Servicios"`
}

// FetchServices lists the newly assigned services for the session.
func (c *Client) FetchServices(ctx context.Context, sessionID string) ([]Servicio, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/nuevasaltas", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Token", "PHPSESSID="+sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch services: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch services: unexpected status %d", resp.StatusCode)
	}

	var sr serviciosResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	return sr.Servicios, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
