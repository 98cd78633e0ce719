// Package auth verifies Telegram WebApp identities and issues the session
// tokens the HTTP layer checks on every authenticated route.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadInitData   = errors.New("invalid init data")
	ErrStaleInitData = errors.New("init data expired")
)

// TelegramUser is the identity embedded in verified WebApp init data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// InitDataVerifier checks the HMAC signature Telegram attaches to WebApp
// init data, per the Mini Apps validation scheme: the secret is
// HMAC-SHA256("WebAppData", botToken), the signature covers the sorted
// key=value lines of every field except hash.
type InitDataVerifier struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

// NewInitDataVerifier creates a verifier for the given bot token. Init data
// older than maxAge is rejected even when the signature is valid.
func NewInitDataVerifier(botToken string, maxAge time.Duration) *InitDataVerifier {
	return &InitDataVerifier{botToken: botToken, maxAge: maxAge, now: time.Now}
}

// Verify validates the raw init data query string and returns the embedded
// user. It returns ErrBadInitData on any signature or format failure and
// ErrStaleInitData when auth_date is older than the configured maximum.
func (v *InitDataVerifier) Verify(initData string) (*TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadInitData, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, fmt.Errorf("%w: missing hash", ErrBadInitData)
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, val := range values[k] {
			lines = append(lines, k+"="+val)
		}
	}
	dataCheckString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(v.botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrBadInitData)
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad auth_date", ErrBadInitData)
	}
	if v.maxAge > 0 && v.now().Sub(time.Unix(authDate, 0)) > v.maxAge {
		return nil, ErrStaleInitData
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("%w: bad user payload", ErrBadInitData)
	}
	if user.ID <= 0 {
		return nil, fmt.Errorf("%w: bad user id", ErrBadInitData)
	}

	return &user, nil
}
