package e2etest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/descope/virtualwebauthn"
	"github.com/justinas/nosurf"
	"github.com/myrjola/skinwise/internal/errors"
)

const (
	readyTimeout  = time.Second
	readyInterval = 100 * time.Millisecond
)

// Client is an HTTP client with a cookie jar and a virtual passkey authenticator.
type Client struct {
	client        *http.Client
	jar           *plainHTTPJar
	url           string
	rp            virtualwebauthn.RelyingParty
	authenticator virtualwebauthn.Authenticator
}

// NewClient creates a WebAuthn-aware HTTP client for the server at url.
//
// rpID and rpOrigin must match the relying party the server was configured with.
func NewClient(url, rpID, rpOrigin string) (*Client, error) {
	jar, err := newPlainHTTPJar()
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}
	return &Client{
		client:        &http.Client{Jar: jar}, //nolint:exhaustruct // defaults with a jar.
		jar:           jar,
		url:           url,
		rp:            virtualwebauthn.RelyingParty{Name: "Skinwise", ID: rpID, Origin: rpOrigin},
		authenticator: virtualwebauthn.NewAuthenticator(),
	}, nil
}

// WaitForReady polls urlPath until it answers 200 OK, ctx is done or a second has passed.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	ticker := time.NewTicker(readyInterval)
	defer ticker.Stop()
	for {
		resp, err := c.Get(ctx, urlPath)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "endpoint not ready", slog.String("path", urlPath))
		case <-ticker.C:
		}
	}
}

// NewRequest creates a request to urlPath on the server.
func (c *Client) NewRequest(ctx context.Context, method, urlPath string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request", slog.String("path", urlPath))
	}
	return req, nil
}

// Do sends req with the cookies collected so far.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request", slog.String("path", req.URL.Path))
	}
	return resp, nil
}

// Get fetches urlPath.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, urlPath, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// GetDoc fetches urlPath and parses the 200 OK response as HTML.
func (c *Client) GetDoc(ctx context.Context, urlPath string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, urlPath)
	if err != nil {
		return nil, err
	}
	return readDoc(resp)
}

func readDoc(resp *http.Response) (*goquery.Document, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("unexpected status code", slog.Int("status", resp.StatusCode))
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "parse document")
	}
	return doc, nil
}

// CSRFToken returns the CSRF token of this client's session as embedded in the front page forms.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	doc, err := c.GetDoc(ctx, "/")
	if err != nil {
		return "", errors.Wrap(err, "get front page")
	}
	return csrfToken(doc)
}

func csrfToken(doc *goquery.Document) (string, error) {
	token, ok := doc.Find("input[name=csrf_token]").First().Attr("value")
	if !ok {
		return "", errors.New("csrf_token not found")
	}
	return token, nil
}

// Cookie returns the value of the named cookie the server has set for this client.
func (c *Client) Cookie(name string) (string, bool) {
	u, err := neturl.Parse(c.url)
	if err != nil {
		return "", false
	}
	return c.jar.Cookie(u, name)
}

// ceremony posts a passkey ceremony message and returns the response body.
func (c *Client) ceremony(ctx context.Context, urlPath, csrf, body string) (string, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, urlPath, strings.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(nosurf.HeaderName, csrf)
	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read body", slog.String("path", urlPath))
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.New("unexpected status code",
			slog.String("path", urlPath), slog.Int("status", resp.StatusCode), slog.String("body", string(out)))
	}
	return string(out), nil
}

// Register creates a passkey on the server, which signs the client in, and returns the front page.
func (c *Client) Register(ctx context.Context) (*goquery.Document, error) {
	csrf, err := c.CSRFToken(ctx)
	if err != nil {
		return nil, err
	}
	options, err := c.ceremony(ctx, "/api/registration/start", csrf, "")
	if err != nil {
		return nil, errors.Wrap(err, "start registration")
	}
	attOpts, err := virtualwebauthn.ParseAttestationOptions(options)
	if err != nil {
		return nil, errors.Wrap(err, "parse attestation options")
	}

	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	attestation := virtualwebauthn.CreateAttestationResponse(c.rp, c.authenticator, credential, *attOpts)
	if _, err = c.ceremony(ctx, "/api/registration/finish", csrf, attestation); err != nil {
		return nil, errors.Wrap(err, "finish registration")
	}

	c.authenticator.AddCredential(credential)
	// Discoverable login needs the user handle the server assigned.
	c.authenticator.Options.UserHandle = []byte(attOpts.UserID)

	return c.GetDoc(ctx, "/")
}

// Login signs in with the passkey created by Register and returns the front page.
func (c *Client) Login(ctx context.Context) (*goquery.Document, error) {
	if len(c.authenticator.Credentials) == 0 {
		return nil, errors.New("no passkey registered")
	}
	csrf, err := c.CSRFToken(ctx)
	if err != nil {
		return nil, err
	}
	options, err := c.ceremony(ctx, "/api/login/start", csrf, "")
	if err != nil {
		return nil, errors.Wrap(err, "start login")
	}
	asOpts, err := virtualwebauthn.ParseAssertionOptions(options)
	if err != nil {
		return nil, errors.Wrap(err, "parse assertion options")
	}

	assertion := virtualwebauthn.CreateAssertionResponse(c.rp, c.authenticator, c.authenticator.Credentials[0], *asOpts)
	if _, err = c.ceremony(ctx, "/api/login/finish", csrf, assertion); err != nil {
		return nil, errors.Wrap(err, "finish login")
	}
	return c.GetDoc(ctx, "/")
}

// Logout submits the front page logout form and returns the page it redirects to.
func (c *Client) Logout(ctx context.Context) (*goquery.Document, error) {
	csrf, err := c.CSRFToken(ctx)
	if err != nil {
		return nil, err
	}
	form := neturl.Values{"csrf_token": {csrf}}
	req, err := c.NewRequest(ctx, http.MethodPost, "/api/logout", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	return readDoc(resp)
}
