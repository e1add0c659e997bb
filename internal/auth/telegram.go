package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	maxInitDataLen = 4096
	maxAuthAge     = 3600 // seconds
	maxClockSkew   = 300
	devPlayerID    = 12345
)

// TelegramUser is the "user" field of WebApp init data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// ValidateInitData checks the WebApp HMAC and that auth_date is recent, then
// returns the embedded user.
func (a *Authenticator) ValidateInitData(initData string) (TelegramUser, error) {
	if len(initData) > maxInitDataLen {
		return TelegramUser{}, ErrInvalidInitData
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return TelegramUser{}, ErrInvalidInitData
	}

	hash := values.Get("hash")
	if hash == "" {
		return TelegramUser{}, ErrInvalidInitData
	}
	values.Del("hash")

	provided, err := hex.DecodeString(hash)
	if err != nil {
		return TelegramUser{}, ErrInvalidInitData
	}
	if !hmac.Equal(signInitData(a.botToken, values), provided) {
		return TelegramUser{}, ErrInvalidInitData
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return TelegramUser{}, ErrInvalidInitData
	}
	now := a.now().Unix()
	if now-authDate > maxAuthAge || authDate-now > maxClockSkew {
		return TelegramUser{}, ErrInvalidInitData
	}

	var u TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &u); err != nil || u.ID <= 0 {
		return TelegramUser{}, ErrInvalidInitData
	}
	return u, nil
}

// signInitData computes the WebApp data-check hash: fields sorted by key,
// joined by newlines, keyed with HMAC("WebAppData", botToken).
func signInitData(botToken string, values url.Values) []byte {
	lines := make([]string, 0, len(values))
	for k, v := range values {
		lines = append(lines, k+"="+strings.Join(v, ""))
	}
	sort.Strings(lines)

	keyMac := hmac.New(sha256.New, []byte("WebAppData"))
	keyMac.Write([]byte(botToken))
	secret := keyMac.Sum(nil)

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(strings.Join(lines, "\n")))
	return h.Sum(nil)
}

var devIDPattern = regexp.MustCompile(`"id"\s*:\s*(\d+)`)

// Login resolves init data to a player id. In dev mode the signature is not
// checked and the id is read from the payload if present.
func (a *Authenticator) Login(initData string) (TelegramUser, error) {
	if !a.devMode {
		return a.ValidateInitData(initData)
	}
	if u, err := a.ValidateInitData(initData); err == nil {
		return u, nil
	}
	u := TelegramUser{ID: devPlayerID, FirstName: "Dev"}
	decoded, err := url.QueryUnescape(initData)
	if err != nil {
		decoded = initData
	}
	if m := devIDPattern.FindStringSubmatch(decoded); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil && id > 0 {
			u.ID = id
		}
	}
	return u, nil
}
