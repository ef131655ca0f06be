package generali

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Production endpoints; tests override both.
const (
	DefaultAuthBaseURL    = "https://www.generali.es/seg_authWebServices/rest"
	DefaultConsultBaseURL = "https://www.generali.es/cla_claimsManagementWebServices/rest"
)

// Prefijo maps the Generali portal user and the receiving mailbox to the
// downstream contract code. Cajamar-branded mails share the mailbox but
// bill under their own codes. An unknown combination yields "".
func Prefijo(user, correo string) string {
	cajamar := strings.Contains(correo, "cajamar")
	switch {
	case user == "pgsekj4" && !cajamar:
		return "Ge"
	case user == "pgse2k3":
		return "GeMad"
	case user == "pgseh5v" && !cajamar:
		return "GeGir"
	case user == "pgsekj4" && cajamar:
		return "Cm"
	case user == "pgseh5v" && cajamar:
		return "CmGir"
	}
	return ""
}

// Client enriches mail notifications against the Generali claims API: the
// mail only carries identifiers, the case content lives behind the
// order-detail and dialog-list endpoints.
type Client struct {
	authBaseURL    string
	consultBaseURL string
	httpClient     *http.Client
	limiter        *rate.Limiter
}

// NewClient builds a Generali API client. limiter may be nil.
func NewClient(authBaseURL, consultBaseURL string, httpClient *http.Client, limiter *rate.Limiter) *Client {
	if authBaseURL == "" {
		authBaseURL = DefaultAuthBaseURL
	}
	if consultBaseURL == "" {
		consultBaseURL = DefaultConsultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		authBaseURL:    authBaseURL,
		consultBaseURL: consultBaseURL,
		httpClient:     httpClient,
		limiter:        limiter,
	}
}

type loginRequest struct {
	Company  string `json:"company"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type loginResponse struct {
	CodeError string `json:"codeError"`
	Error     string `json:"error"`
	Session   string `json:"session"`
}

// Login obtains a session token. The API signals failure in-band through
// codeError; anything but "000" is a rejection.
func (c *Client) Login(ctx context.Context, company, user, password string) (string, error) {
	var out loginResponse
	err := c.post(ctx, c.authBaseURL+"/loginUserService", "", loginRequest{
		Company:  company,
		User:     user,
		Password: password,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("login generali: %w", err)
	}
	if out.CodeError != "000" {
		return "", fmt.Errorf("login generali: code %s: %s", out.CodeError, out.Error)
	}
	return out.Session, nil
}

// OrderAuth identifies one order for the consultation endpoints.
type OrderAuth struct {
	OrderID        string `json:"orderID"`
	Company        string `json:"company"`
	ClaimNumber    string `json:"claimNumber"`
	ProfessionalID string `json:"professionalID"`
}

// OrderDetail is the enriched assignment sheet.
type OrderDetail struct {
	Observations []string `json:"observations"`
}

// GetOrderDetail fetches the assignment sheet for an order.
func (c *Client) GetOrderDetail(ctx context.Context, token string, auth OrderAuth) (OrderDetail, error) {
	var out OrderDetail
	if err := c.post(ctx, c.consultBaseURL+"/order/detail", token, auth, &out); err != nil {
		return OrderDetail{}, fmt.Errorf("order detail: %w", err)
	}
	return out, nil
}

// DialogMessage is one entry of an order's communication thread.
type DialogMessage struct {
	IDDialog string `json:"idDialog"`
	Message  string `json:"message"`
}

// DialogList is the communication thread of one order.
type DialogList struct {
	Messages []DialogMessage `json:"messages"`
}

// GetDialogList fetches the communication thread for an order.
func (c *Client) GetDialogList(ctx context.Context, token string, auth OrderAuth) (DialogList, error) {
	var out DialogList
	if err := c.post(ctx, c.consultBaseURL+"/dialog/dialogList", token, auth, &out); err != nil {
		return DialogList{}, fmt.Errorf("dialog list: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, url, token string, payload, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token == "" {
		req.Header.Set("X-VinShieldPublic", "vinshield")
	} else {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
