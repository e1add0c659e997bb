package auth

import (
	"encoding/hex"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildInitData signs fields the way Telegram does.
func buildInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	vals := url.Values{}
	for k, v := range fields {
		vals.Set(k, v)
	}
	vals.Set("hash", hex.EncodeToString(signInitData(botToken, vals)))
	return vals.Encode()
}

func freshFields(userJSON string) map[string]string {
	return map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      userJSON,
		"query_id":  "AAH",
	}
}

func TestValidateInitDataValid(t *testing.T) {
	a := New("secret", "test-bot-token", false)
	initData := buildInitData(t, "test-bot-token", freshFields(`{"id":42,"username":"u","first_name":"F"}`))

	u, err := a.ValidateInitData(initData)
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, "u", u.Username)
}

func TestValidateInitDataTampered(t *testing.T) {
	a := New("secret", "test-bot-token", false)
	initData := buildInitData(t, "test-bot-token", freshFields(`{"id":42}`))

	_, err := a.ValidateInitData(initData + "&x=1")
	assert.ErrorIs(t, err, ErrInvalidInitData)

	_, err = New("secret", "other-token", false).ValidateInitData(initData)
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestValidateInitDataStale(t *testing.T) {
	a := New("secret", "tok", false)
	fields := freshFields(`{"id":42}`)
	fields["auth_date"] = strconv.FormatInt(time.Now().Add(-2*time.Hour).Unix(), 10)

	_, err := a.ValidateInitData(buildInitData(t, "tok", fields))
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestLoginDevMode(t *testing.T) {
	a := New("secret", "", true)

	u, err := a.Login(`user={"id":777}`)
	require.NoError(t, err)
	assert.Equal(t, int64(777), u.ID)

	u, err = a.Login("")
	require.NoError(t, err)
	assert.Equal(t, int64(devPlayerID), u.ID)

	_, err = New("secret", "tok", false).Login(`user={"id":777}`)
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestTokenRoundTrip(t *testing.T) {
	a := New("secret", "tok", false)
	tok, err := a.IssueToken(99)
	require.NoError(t, err)

	id, err := a.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)

	_, err = New("other", "tok", false).ParseToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = a.ParseToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpires(t *testing.T) {
	a := New("secret", "tok", false)
	tok, err := a.IssueToken(5)
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = a.ParseToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
