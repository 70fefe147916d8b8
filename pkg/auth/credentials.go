// Package auth owns credential persistence, validation, and login-completion
// detection for the creator platform.
package auth

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// CredentialSchemaVersion is stamped into every newly captured set. Version
// 1.0 files are bare cookie arrays written by older tooling and are still
// readable.
const CredentialSchemaVersion = "2.0"

// CreatorDomain is the source domain credential sets are captured from.
const CreatorDomain = "creator.xiaohongshu.com"

// RequiredNames lists every credential the creator area is known to set.
// Completeness is judged against this list with a small tolerance for
// stragglers.
var RequiredNames = []string{
	"web_session", "a1", "gid", "webId",
	"customer-sso-sid", "x-user-id-creator.xiaohongshu.com",
	"access-token-creator.xiaohongshu.com", "galaxy_creator_session_id",
	"galaxy.creator.beaker.session.id",
}

// BasicNames is the load-bearing subset of RequiredNames. Losing or expiring
// any of these breaks the session outright, no matter how healthy the rest
// of the set looks.
var BasicNames = RequiredNames[:4]

// Credential is one persisted cookie record.
type Credential struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Expiry   float64 `json:"expiry,omitempty"`
}

// Expired reports whether the credential carries an expiry that has already
// passed. Session cookies (no expiry) never expire here.
func (c Credential) Expired(now time.Time) bool {
	return c.Expiry > 0 && c.Expiry < float64(now.Unix())
}

// CredentialSet is the persisted session bundle plus capture metadata.
type CredentialSet struct {
	Cookies       []Credential `json:"cookies"`
	SavedAt       time.Time    `json:"saved_at"`
	Domain        string       `json:"domain"`
	CriticalFound []string     `json:"critical_cookies_found"`
	Version       string       `json:"version"`
}

// NewCredentialSet builds a versioned set from freshly captured browser
// cookies, recording which of the required names were present at capture
// time.
func NewCredentialSet(cookies []playwright.Cookie) *CredentialSet {
	set := &CredentialSet{
		Cookies: make([]Credential, 0, len(cookies)),
		SavedAt: time.Now(),
		Domain:  CreatorDomain,
		Version: CredentialSchemaVersion,
	}

	for _, c := range cookies {
		set.Cookies = append(set.Cookies, Credential{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			Expiry:   c.Expires,
		})
	}

	for _, name := range RequiredNames {
		if _, ok := set.Find(name); ok {
			set.CriticalFound = append(set.CriticalFound, name)
		}
	}

	return set
}

// Find returns the first credential with the given name.
func (s *CredentialSet) Find(name string) (Credential, bool) {
	for _, c := range s.Cookies {
		if c.Name == name {
			return c, true
		}
	}
	return Credential{}, false
}

// Empty reports whether the set holds no credentials at all.
func (s *CredentialSet) Empty() bool {
	return s == nil || len(s.Cookies) == 0
}

// PlaywrightCookies converts the set into the form browser contexts accept
// for injection before first navigation.
func (s *CredentialSet) PlaywrightCookies() []playwright.OptionalCookie {
	if s == nil {
		return nil
	}

	cookies := make([]playwright.OptionalCookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		cookie := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Secure:   playwright.Bool(c.Secure),
			HttpOnly: playwright.Bool(c.HTTPOnly),
		}

		if c.Domain != "" {
			cookie.Domain = playwright.String(c.Domain)
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		cookie.Path = playwright.String(path)
		if c.Expiry > 0 {
			cookie.Expires = playwright.Float(c.Expiry)
		}

		cookies = append(cookies, cookie)
	}
	return cookies
}
