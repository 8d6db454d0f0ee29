package authgate

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/gogomedia/internal/config"
	"github.com/Skotchmaster/gogomedia/internal/db"
	"github.com/Skotchmaster/gogomedia/internal/models"
	"github.com/Skotchmaster/gogomedia/internal/repo"
	"github.com/Skotchmaster/gogomedia/internal/revocation"
	"github.com/Skotchmaster/gogomedia/internal/tokens"
)

type countingRecorder struct {
	results []string
}

func (r *countingRecorder) AuthDecision(result string) { r.results = append(r.results, result) }

type fixture struct {
	gate    *Gate
	repo    *repo.GormRepo
	tokens  *tokens.Service
	revoked *revocation.MemoryStore
	rec     *countingRecorder
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	gdb, err := db.Open(ctx, config.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	f := &fixture{
		repo:    repo.New(gdb),
		revoked: revocation.NewMemoryStore(),
		rec:     &countingRecorder{},
		clock:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.tokens = tokens.NewService([]byte("test-secret"), tokens.DefaultTTL)
	f.tokens.Now = func() time.Time { return f.clock }
	f.gate = &Gate{Tokens: f.tokens, Revoked: f.revoked, Users: f.repo, Recorder: f.rec}
	return f
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "x"}
	require.NoError(t, f.repo.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) token(t *testing.T, id uint) string {
	t.Helper()
	tok, err := f.tokens.Issue(id)
	require.NoError(t, err)
	return tok
}

func requireDenial(t *testing.T, err error, reason Reason, status int, msg string) {
	t.Helper()
	var d *Denial
	require.True(t, errors.As(err, &d), "expected *Denial, got %v", err)
	assert.Equal(t, reason, d.Reason)
	assert.Equal(t, status, d.Status)
	assert.Equal(t, msg, d.Message)
}

func TestAuthorize_Success(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "testname")
	tok := f.token(t, u.ID)

	p, err := f.gate.Authorize(context.Background(), "Bearer "+tok)
	require.NoError(t, err)
	require.NotNil(t, p.User)
	assert.Equal(t, u.ID, p.User.ID)
	assert.Equal(t, tok, p.Token)
	assert.False(t, p.Bypassed)
	assert.Equal(t, []string{"authorized"}, f.rec.results)
}

func TestAuthorize_Denials(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "testname")
	good := f.token(t, u.ID)

	revokedTok := f.token(t, u.ID+100)
	require.NoError(t, f.revoked.Revoke(context.Background(), revokedTok))

	other := tokens.NewService([]byte("other-secret"), tokens.DefaultTTL)
	other.Now = f.tokens.Now
	forged, err := other.Issue(u.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		reason Reason
		status int
		msg    string
	}{
		{"absent", "", ReasonNoCredential, http.StatusUnauthorized, "no authorization header"},
		{"one part", good, ReasonMalformedCredential, http.StatusUnprocessableEntity, "authorization header malformed"},
		{"three parts", "Bearer " + good + " extra", ReasonMalformedCredential, http.StatusUnprocessableEntity, "authorization header malformed"},
		{"whitespace only", "   ", ReasonMalformedCredential, http.StatusUnprocessableEntity, "authorization header malformed"},
		{"revoked", "Bearer " + revokedTok, ReasonTokenRevoked, http.StatusUnauthorized, "auth token blacklisted"},
		{"garbage", "Bearer not-a-token", ReasonTokenInvalid, http.StatusUnauthorized, "invalid token"},
		{"wrong secret", "Bearer " + forged, ReasonTokenInvalid, http.StatusUnauthorized, "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gate.Authorize(context.Background(), tt.header)
			requireDenial(t, err, tt.reason, tt.status, tt.msg)
		})
	}
}

func TestAuthorize_Expired(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "testname")
	tok := f.token(t, u.ID)

	f.clock = f.clock.Add(tokens.DefaultTTL + time.Second)
	_, err := f.gate.Authorize(context.Background(), "Bearer "+tok)
	requireDenial(t, err, ReasonTokenExpired, http.StatusUnauthorized, "signature expired")
	assert.ErrorIs(t, err, tokens.ErrExpired)
}

func TestAuthorize_RevocationCheckedFirst(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "testname")
	tok := f.token(t, u.ID)
	require.NoError(t, f.revoked.Revoke(context.Background(), tok))

	f.clock = f.clock.Add(tokens.DefaultTTL + time.Hour)
	_, err := f.gate.Authorize(context.Background(), "Bearer "+tok)
	requireDenial(t, err, ReasonTokenRevoked, http.StatusUnauthorized, "auth token blacklisted")
}

func TestAuthorize_SubjectGone(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, 4242)

	p, err := f.gate.Authorize(context.Background(), "Bearer "+tok)
	require.NoError(t, err)
	assert.Nil(t, p.User)
	assert.Equal(t, tok, p.Token)
}

func TestAuthorize_Bypass(t *testing.T) {
	f := newFixture(t)
	f.gate.AuthDisabled = true

	p, err := f.gate.Authorize(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, p.Bypassed)
	assert.Nil(t, p.User)
	assert.Empty(t, p.Token)
	assert.Equal(t, []string{"bypassed"}, f.rec.results)
}

func TestActingOwner(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	ctx := context.Background()

	p := Principal{User: alice}

	owner, err := f.gate.ActingOwner(ctx, p, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, owner.ID)

	_, err = f.gate.ActingOwner(ctx, p, "bob")
	requireDenial(t, err, ReasonUserMismatch, http.StatusUnauthorized, "not logged in as this user")

	_, err = f.gate.ActingOwner(ctx, Principal{}, "bob")
	requireDenial(t, err, ReasonUserMismatch, http.StatusUnauthorized, "not logged in as this user")

	_, err = f.gate.ActingOwner(ctx, p, "carol")
	requireDenial(t, err, ReasonUnknownUser, http.StatusUnprocessableEntity, "user doesn't exist")

	f.gate.AuthDisabled = true
	owner, err = f.gate.ActingOwner(ctx, Principal{Bypassed: true}, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, owner.ID)
}
