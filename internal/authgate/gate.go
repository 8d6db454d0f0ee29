// Package authgate turns the credential header of an inbound request into a
// resolved user or a typed Denial. Every protected handler calls Authorize
// exactly once before doing its own work.
package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/gogomedia/internal/models"
	"github.com/Skotchmaster/gogomedia/internal/repo"
	"github.com/Skotchmaster/gogomedia/internal/revocation"
	"github.com/Skotchmaster/gogomedia/internal/tokens"
)

type TokenVerifier interface {
	Verify(token string) (uint, error)
}

type UserFinder interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// DecisionRecorder observes every gate outcome; result is "authorized",
// "bypassed" or a Reason.
type DecisionRecorder interface {
	AuthDecision(result string)
}

// Principal is what a successful Authorize hands downstream. User is nil in
// bypass mode and when the token subject no longer resolves to a user.
type Principal struct {
	User     *models.User
	Token    string
	Bypassed bool
}

type Gate struct {
	Tokens       TokenVerifier
	Revoked      revocation.Store
	Users        UserFinder
	AuthDisabled bool
	Recorder     DecisionRecorder
}

func (g *Gate) record(result string) {
	if g.Recorder != nil {
		g.Recorder.AuthDecision(result)
	}
}

func (g *Gate) fail(reason Reason, cause error) (Principal, error) {
	g.record(string(reason))
	return Principal{}, deny(reason, cause)
}

// Authorize evaluates rawHeader, the value of the Authorization header. An
// empty value counts as an absent header. Errors are either a *Denial or a
// storage fault.
func (g *Gate) Authorize(ctx context.Context, rawHeader string) (Principal, error) {
	if g.AuthDisabled {
		g.record("bypassed")
		return Principal{Bypassed: true}, nil
	}

	if rawHeader == "" {
		return g.fail(ReasonNoCredential, nil)
	}

	parts := strings.Fields(rawHeader)
	if len(parts) != 2 {
		return g.fail(ReasonMalformedCredential, nil)
	}
	token := parts[1]

	revoked, err := g.Revoked.IsRevoked(ctx, token)
	if err != nil {
		return Principal{}, fmt.Errorf("authorize: %w", err)
	}
	if revoked {
		return g.fail(ReasonTokenRevoked, nil)
	}

	userID, err := g.Tokens.Verify(token)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return g.fail(ReasonTokenExpired, err)
		}
		return g.fail(ReasonTokenInvalid, err)
	}

	user, err := g.Users.FindUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return Principal{}, fmt.Errorf("authorize: resolve subject: %w", err)
		}
		user = nil
	}

	g.record("authorized")
	return Principal{User: user, Token: token}, nil
}

// ActingOwner resolves the username named in the request path and checks it
// against the authenticated principal. In bypass mode any existing user is
// accepted.
func (g *Gate) ActingOwner(ctx context.Context, p Principal, pathUsername string) (*models.User, error) {
	owner, err := g.Users.FindUserByUsername(ctx, pathUsername)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, deny(ReasonUnknownUser, err)
		}
		return nil, fmt.Errorf("resolve path user: %w", err)
	}

	if g.AuthDisabled || p.Bypassed {
		return owner, nil
	}
	if p.User == nil || p.User.ID != owner.ID {
		return nil, deny(ReasonUserMismatch, nil)
	}
	return owner, nil
}
