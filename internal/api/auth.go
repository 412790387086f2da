package api

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"presence_dao/contract"
	"presence_dao/sdk"

	"github.com/golang-jwt/jwt/v5"
	"github.com/puzpuzpuz/xsync/v4"
	"lukechampine.com/blake3"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrReplayed     = errors.New("token already used")
)

// TxClaims binds a signed token to one request body. Subject is the sender
// address and ID is the transaction id.
type TxClaims struct {
	jwt.RegisteredClaims
	BodyHash string `json:"bh"`
}

// BodyHash is the hex blake3 digest carried in the bh claim.
func BodyHash(body []byte) string {
	sum := blake3.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// SignInstruction encodes ix and returns the body together with a bearer
// token signed by priv.
// Example payload: SignInstruction(priv, ix, uuid.NewString(), time.Now(), time.Minute)
func SignInstruction(priv ed25519.PrivateKey, ix contract.Instruction, txID string, now time.Time, ttl time.Duration) (string, []byte, error) {
	body, err := json.Marshal(ix)
	if err != nil {
		return "", nil, err
	}
	sender := sdk.AddressFromPublicKey(priv.Public().(ed25519.PublicKey))
	claims := TxClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sender.String(),
			ID:        txID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		BodyHash: BodyHash(body),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		return "", nil, err
	}
	return token, body, nil
}

// verifier checks signatures against the sender address and remembers token
// ids until they expire.
type verifier struct {
	maxAge time.Duration
	now    func() time.Time
	seen   *xsync.Map[string, time.Time]
}

func newVerifier(maxAge time.Duration, now func() time.Time) *verifier {
	return &verifier{maxAge: maxAge, now: now, seen: xsync.NewMap[string, time.Time]()}
}

// verify returns the claims of a token whose signature, lifetime and body
// hash all check out. A token id is accepted once.
func (v *verifier) verify(token string, body []byte) (*TxClaims, error) {
	claims := &TxClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		c, ok := t.Claims.(*TxClaims)
		if !ok {
			return nil, errors.New("unexpected claims")
		}
		return sdk.Address(c.Subject).PublicKey()
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	now := v.now()
	exp := claims.ExpiresAt.Time
	if exp.Sub(now) > v.maxAge {
		return nil, fmt.Errorf("%w: expiry more than %s ahead", ErrInvalidToken, v.maxAge)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}
	if claims.BodyHash != BodyHash(body) {
		return nil, fmt.Errorf("%w: body hash mismatch", ErrInvalidToken)
	}

	v.sweep(now)
	if _, loaded := v.seen.LoadOrStore(claims.ID, exp); loaded {
		return nil, fmt.Errorf("%w: %s", ErrReplayed, claims.ID)
	}
	return claims, nil
}

// sweep drops ids whose tokens can no longer verify anyway.
func (v *verifier) sweep(now time.Time) {
	v.seen.Range(func(id string, exp time.Time) bool {
		if now.After(exp) {
			v.seen.Delete(id)
		}
		return true
	})
}
