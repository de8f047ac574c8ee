package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/user-service/internal/core/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCodec(t *testing.T, clock *fakeClock) *JWTCodec {
	t.Helper()
	codec, err := NewJWTCodec(Config{
		Secret:          []byte("test-secret"),
		Issuer:          "user-service",
		AccessLifespan:  time.Hour,
		RefreshLifespan: 48 * time.Hour,
	}, WithClock(clock.now))
	require.NoError(t, err)
	return codec
}

var alice = &domain.User{ID: "0191e0c2-1111-7000-8000-000000000001", Username: "alice", Roles: domain.Roles{"admin"}}

func TestJWTCodec_IssueDecode(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	codec := newTestCodec(t, clock)

	raw, err := codec.Issue(alice)
	require.NoError(t, err)
	assert.Len(t, strings.Split(raw, "."), 3)

	id, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id.UserID)
	assert.Equal(t, domain.Roles{"admin"}, id.Roles)
	assert.Equal(t, clock.t, id.IssuedAt)
	assert.Equal(t, clock.t.Add(time.Hour), id.ExpiresAt)
	assert.Equal(t, clock.t.Add(48*time.Hour), id.RefreshExpiresAt)
}

func TestJWTCodec_TokensAreUnique(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	a, err := codec.Issue(alice)
	require.NoError(t, err)
	b, err := codec.Issue(alice)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestJWTCodec_Expired(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	raw, err := codec.Issue(alice)
	require.NoError(t, err)

	clock.advance(time.Hour + time.Second)
	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestJWTCodec_WrongKey(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	other, err := NewJWTCodec(Config{Secret: []byte("other-secret"), Issuer: "user-service"}, WithClock(clock.now))
	require.NoError(t, err)

	raw, err := other.Issue(alice)
	require.NoError(t, err)

	_, err = newTestCodec(t, clock).Decode(raw)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTCodec_TamperedPayload(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	raw, err := codec.Issue(alice)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), alice.ID, "0191e0c2-9999-7000-8000-000000000009", 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = codec.Decode(strings.Join(parts, "."))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTCodec_RejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)
	claims := jwt.RegisteredClaims{
		Subject:   alice.ID,
		Issuer:    "user-service",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = codec.Decode(hs512)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(none)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTCodec_MalformedAndForeignIssuer(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := codec.Decode(raw)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, raw)
	}

	foreign, err := NewJWTCodec(Config{Secret: []byte("test-secret"), Issuer: "someone-else"}, WithClock(clock.now))
	require.NoError(t, err)
	raw, err := foreign.Issue(alice)
	require.NoError(t, err)
	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTCodec_MissingExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: alice.ID,
		Issuer:  "user-service",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTCodec_DecodeForRefresh(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	raw, err := codec.Issue(alice)
	require.NoError(t, err)

	// access window closed, refresh window open
	clock.advance(2 * time.Hour)
	_, err = codec.Decode(raw)
	require.ErrorIs(t, err, domain.ErrTokenExpired)

	id, err := codec.DecodeForRefresh(raw)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id.UserID)

	clock.advance(47 * time.Hour)
	_, err = codec.DecodeForRefresh(raw)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestJWTCodec_DecodeForRefreshRejectsForgery(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(t, clock)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RefreshExpiresAt: clock.t.Add(time.Hour).Unix(),
		RegisteredClaims: jwt.RegisteredClaims{Subject: alice.ID, Issuer: "user-service"},
	}).SignedString([]byte("wrong"))
	require.NoError(t, err)

	_, err = codec.DecodeForRefresh(forged)
	assert.True(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestNewJWTCodec_Defaults(t *testing.T) {
	_, err := NewJWTCodec(Config{})
	require.Error(t, err)

	codec, err := NewJWTCodec(Config{Secret: []byte("k")})
	require.NoError(t, err)
	assert.Equal(t, DefaultAccessLifespan, codec.access)
	assert.Equal(t, DefaultRefreshLifespan, codec.refresh)
}
