package sessions

import (
	"fmt"

	"github.com/jrsteele09/go-oauth-relay/internal/errors"
)

// Record is the token state stored under a session handle.
// The JSON layout matches the documents written by earlier deployments of the relay.
type Record struct {
	Handle            string `json:"-" bson:"_id"`
	AccessToken       string `json:"access_token" bson:"access_token"`
	AccessTokenExpiry int64  `json:"access_token_expires_at_unixtime" bson:"access_token_expires_at_unixtime"` // unix seconds, provider clock
	RefreshToken      string `json:"refresh_token" bson:"refresh_token"`
	Scope             string `json:"scope" bson:"scope"`
}

// Validate checks the fields every stored record must carry
func (r Record) Validate() error {
	switch {
	case r.Handle == "":
		return fmt.Errorf("[Record Validate] handle is required: %w", errors.ErrInvalidRecord)
	case r.AccessToken == "":
		return fmt.Errorf("[Record Validate] access token is required: %w", errors.ErrInvalidRecord)
	case r.RefreshToken == "":
		return fmt.Errorf("[Record Validate] refresh token is required: %w", errors.ErrInvalidRecord)
	}
	return nil
}

// Expired reports whether the access token is no longer usable at unix time now
func (r Record) Expired(now int64) bool {
	return r.AccessTokenExpiry <= now
}
