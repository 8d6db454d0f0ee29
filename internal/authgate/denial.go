package authgate

import "net/http"

type Reason string

const (
	ReasonNoCredential        Reason = "no_credential"
	ReasonMalformedCredential Reason = "malformed_credential"
	ReasonTokenRevoked        Reason = "token_revoked"
	ReasonTokenExpired        Reason = "token_expired"
	ReasonTokenInvalid        Reason = "token_invalid"
	ReasonUnknownUser         Reason = "unknown_user"
	ReasonUserMismatch        Reason = "user_mismatch"
)

// Denial is the typed failure returned by the gate. Message is part of the
// public contract and is sent to the client verbatim.
type Denial struct {
	Reason  Reason
	Status  int
	Message string
	Err     error
}

func (d *Denial) Error() string { return d.Message }

func (d *Denial) Unwrap() error { return d.Err }

func deny(reason Reason, cause error) *Denial {
	d := &Denial{Reason: reason, Err: cause}
	switch reason {
	case ReasonNoCredential:
		d.Status, d.Message = http.StatusUnauthorized, "no authorization header"
	case ReasonMalformedCredential:
		d.Status, d.Message = http.StatusUnprocessableEntity, "authorization header malformed"
	case ReasonTokenRevoked:
		d.Status, d.Message = http.StatusUnauthorized, "auth token blacklisted"
	case ReasonTokenExpired:
		d.Status, d.Message = http.StatusUnauthorized, "signature expired"
	case ReasonTokenInvalid:
		d.Status, d.Message = http.StatusUnauthorized, "invalid token"
	case ReasonUnknownUser:
		d.Status, d.Message = http.StatusUnprocessableEntity, "user doesn't exist"
	case ReasonUserMismatch:
		d.Status, d.Message = http.StatusUnauthorized, "not logged in as this user"
	default:
		d.Status, d.Message = http.StatusUnauthorized, "unauthorized"
	}
	return d
}
