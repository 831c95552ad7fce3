package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-oauth-relay/oauth2"
)

type observedKey struct{}

// maxObservedBody bounds the copy of a token endpoint body kept for diagnostics
const maxObservedBody = 64 << 10

// observed records what the token endpoint answered for one grant
type observed struct {
	status int
	body   string
}

func withObserver(ctx context.Context) (context.Context, *observed) {
	o := &observed{}
	return context.WithValue(ctx, observedKey{}, o), o
}

// tokenTransport adds redirect_uri to refresh grants, which the oauth2 package
// never sends, and records the token endpoint status and body for error classification.
type tokenTransport struct {
	base        http.RoundTripper
	redirectURI string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost && req.Body != nil && t.redirectURI != "" {
		r, err := t.withRefreshRedirect(req)
		if err != nil {
			return nil, err
		}
		req = r
	}

	resp, err := t.base.RoundTrip(req)
	if err == nil {
		if o, ok := req.Context().Value(observedKey{}).(*observed); ok {
			o.status = resp.StatusCode
			o.body = teeBody(resp)
		}
	}
	return resp, err
}

// teeBody copies the head of the response body and puts it back in front of the unread rest
func teeBody(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	head, _ := io.ReadAll(io.LimitReader(resp.Body, maxObservedBody))
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), resp.Body), resp.Body}
	return string(head)
}

func (t *tokenTransport) withRefreshRedirect(req *http.Request) (*http.Request, error) {
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}

	form, err := url.ParseQuery(string(body))
	if err == nil && form.Get(oauth2.ParamGrantType) == string(oauth2.RefreshTokenGrant) && form.Get(oauth2.ParamRedirectURI) == "" {
		form.Set(oauth2.ParamRedirectURI, t.redirectURI)
		body = []byte(form.Encode())
	}

	clone := req.Clone(req.Context())
	clone.Body = io.NopCloser(bytes.NewReader(body))
	clone.ContentLength = int64(len(body))
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return clone, nil
}
