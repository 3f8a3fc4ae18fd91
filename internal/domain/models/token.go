package models

import (
	"crypto/subtle"
	"encoding/base64"
	"sort"
	"time"
)

// Token is a short-lived bearer credential with per-repository
// privilege grants. One token exists per user; it is persisted as a
// JSON file by the token store.
type Token struct {
	User       string              `json:"user"`
	Password   string              `json:"password"`
	Privileges map[string][]Action `json:"privileges"`
	ExpiresAt  time.Time           `json:"expires_at"`
}

// NewToken creates a token for user with an empty grant map
func NewToken(user, password string, expiresAt time.Time) *Token {
	return &Token{
		User:       user,
		Password:   password,
		Privileges: make(map[string][]Action),
		ExpiresAt:  expiresAt,
	}
}

// Expired reports whether the token has expired relative to now
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// CheckPassword compares password against the token secret in constant time
func (t *Token) CheckPassword(password string) bool {
	return subtle.ConstantTimeCompare([]byte(t.Password), []byte(password)) == 1
}

// AuthHeader returns the HTTP Basic authorization header value derived
// from the token credentials.
func (t *Token) AuthHeader() string {
	creds := t.User + ":" + t.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// AddPrivilege grants (repo, action). Idempotent; grants are a set.
func (t *Token) AddPrivilege(repo string, action Action) {
	if t.Privileges == nil {
		t.Privileges = make(map[string][]Action)
	}
	for _, a := range t.Privileges[repo] {
		if a == action {
			return
		}
	}
	t.Privileges[repo] = append(t.Privileges[repo], action)
	sort.Slice(t.Privileges[repo], func(i, j int) bool {
		return t.Privileges[repo][i] < t.Privileges[repo][j]
	})
}

// RemovePrivilege revokes (repo, action). Idempotent. The repo key is
// removed from the grant map once its action set is empty.
func (t *Token) RemovePrivilege(repo string, action Action) {
	actions := t.Privileges[repo]
	kept := actions[:0]
	for _, a := range actions {
		if a != action {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		delete(t.Privileges, repo)
		return
	}
	t.Privileges[repo] = kept
}

// HasPrivilege reports whether (repo, action) is granted. Unknown
// repos and actions report false.
func (t *Token) HasPrivilege(repo string, action Action) bool {
	for _, a := range t.Privileges[repo] {
		if a == action {
			return true
		}
	}
	return false
}

// Grants returns the flattened (repo, action) pairs in stable order.
// Used when revalidating every grant against the access oracle.
func (t *Token) Grants() []Grant {
	repos := make([]string, 0, len(t.Privileges))
	for repo := range t.Privileges {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	var grants []Grant
	for _, repo := range repos {
		for _, a := range t.Privileges[repo] {
			grants = append(grants, Grant{Repo: repo, Action: a})
		}
	}
	return grants
}

// Grant is a single (repo, action) privilege pair
type Grant struct {
	Repo   string
	Action Action
}

// Credentials is the JSON credential block the authenticator writes to
// stdout for the git client's HTTP layer.
type Credentials struct {
	Header    map[string]string `json:"header"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Credentials derives the credential block from the token
func (t *Token) Credentials() Credentials {
	return Credentials{
		Header:    map[string]string{"Authorization": t.AuthHeader()},
		ExpiresAt: t.ExpiresAt,
	}
}
