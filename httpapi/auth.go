package httpapi

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"squadvault/ledger"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const actorContextKey contextKey = "actor"

var (
	errMissingToken = errors.New("missing bearer token")
	errTokenTooLong = errors.New("token lifetime exceeds the allowed maximum")
)

// Authenticator verifies self-signed actor tokens. A token is an EdDSA JWT
// whose subject is the hex ed25519 public key that signed it.
type Authenticator struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an authenticator accepting tokens that expire
// no later than maxAge from now
func NewAuthenticator(maxAge time.Duration) *Authenticator {
	return &Authenticator{maxAge: maxAge, now: time.Now}
}

// Authenticate returns the identity proven by the request's bearer token
func (a *Authenticator) Authenticate(r *http.Request) (ledger.Identity, error) {
	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return ledger.Identity{}, errMissingToken
	}
	return a.verify(tokenString)
}

func (a *Authenticator) verify(tokenString string) (ledger.Identity, error) {
	var actor ledger.Identity
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		id, err := ledger.ParseIdentity(claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("invalid subject: %w", err)
		}
		actor = id
		return ed25519.PublicKey(id[:]), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return ledger.Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	if claims.ExpiresAt.Time.After(a.now().Add(a.maxAge)) {
		return ledger.Identity{}, errTokenTooLong
	}
	return actor, nil
}

// Middleware rejects unauthenticated requests and stores the actor in the
// request context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.Authenticate(r)
		if err != nil {
			log.WithFields(log.Fields{
				"path":  r.URL.Path,
				"error": err,
			}).Debug("Rejected unauthenticated request")
			writeStatus(w, http.StatusUnauthorized, ledger.KindUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorContextKey, actor)))
	})
}

// ActorFromContext returns the authenticated actor, if any
func ActorFromContext(ctx context.Context) (ledger.Identity, bool) {
	actor, ok := ctx.Value(actorContextKey).(ledger.Identity)
	return actor, ok
}

// SignActorToken issues a token for the key pair, valid for ttl
func SignActorToken(key ed25519.PrivateKey, now time.Time, ttl time.Duration) (string, error) {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return "", errors.New("unexpected public key type")
	}
	id, err := ledger.IdentityFromBytes(pub)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.RegisteredClaims{
		Subject:   id.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(key)
}
