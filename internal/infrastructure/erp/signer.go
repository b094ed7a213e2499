package erp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	signatureMethod = "HMAC-SHA256"
	oauthVersion    = "1.0"
)

// Signer builds OAuth 1.0a Authorization headers with HMAC-SHA256 signatures.
// Every call draws a fresh nonce and timestamp.
type Signer struct {
	accountID      string
	consumerKey    string
	consumerSecret string
	tokenID        string
	tokenSecret    string

	nonce func() string
	now   func() time.Time
}

// NewSigner creates a signer for the configured account
func NewSigner(cfg *Config) *Signer {
	return &Signer{
		accountID:      cfg.AccountID,
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		tokenID:        cfg.TokenID,
		tokenSecret:    cfg.TokenSecret,
		nonce:          randomNonce,
		now:            time.Now,
	}
}

func randomNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Authorization returns the header value for a request to rawURL
func (s *Signer) Authorization(method, rawURL string) (string, error) {
	return s.authorize(method, rawURL, s.nonce(), strconv.FormatInt(s.now().Unix(), 10))
}

func (s *Signer) authorize(method, rawURL, nonce, timestamp string) (string, error) {
	oauth := map[string]string{
		"oauth_consumer_key":     s.consumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": signatureMethod,
		"oauth_timestamp":        timestamp,
		"oauth_token":            s.tokenID,
		"oauth_version":          oauthVersion,
	}

	base, err := baseString(method, rawURL, oauth)
	if err != nil {
		return "", err
	}
	signature := s.sign(base)

	var b strings.Builder
	fmt.Fprintf(&b, `OAuth realm="%s"`, s.accountID)
	for _, k := range []string{
		"oauth_consumer_key",
		"oauth_token",
		"oauth_signature_method",
		"oauth_timestamp",
		"oauth_nonce",
		"oauth_version",
	} {
		fmt.Fprintf(&b, `,%s="%s"`, k, percentEncode(oauth[k]))
	}
	fmt.Fprintf(&b, `,oauth_signature="%s"`, percentEncode(signature))
	return b.String(), nil
}

func (s *Signer) sign(base string) string {
	key := percentEncode(s.consumerSecret) + "&" + percentEncode(s.tokenSecret)
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// baseString builds METHOD&enc(url)&enc(params). Query parameters of rawURL
// are signed together with the oauth parameters; the URL part drops them.
func baseString(method, rawURL string, oauth map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("erp: invalid request url: %w", err)
	}

	type pair struct{ k, v string }
	params := make([]pair, 0, len(oauth)+4)
	for k, v := range oauth {
		params = append(params, pair{percentEncode(k), percentEncode(v)})
	}
	for k, vs := range u.Query() {
		for _, v := range vs {
			params = append(params, pair{percentEncode(k), percentEncode(v)})
		}
	}
	sort.Slice(params, func(i, j int) bool {
		if params[i].k == params[j].k {
			return params[i].v < params[j].v
		}
		return params[i].k < params[j].k
	})

	encoded := make([]string, len(params))
	for i, p := range params {
		encoded[i] = p.k + "=" + p.v
	}

	u.RawQuery = ""
	u.Fragment = ""
	return strings.ToUpper(method) + "&" + percentEncode(u.String()) + "&" + percentEncode(strings.Join(encoded, "&")), nil
}

// percentEncode applies RFC 3986 encoding: only unreserved characters pass through
func percentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}
