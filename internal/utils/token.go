package utils // package utils provides helper functions for signed action tokens

import (
    "errors"
    "fmt"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Enrollment actions that can be authorized out of band.  A token is
// scoped to exactly one action on one section for one student.
const (
    ActionDrop     = "drop"
    ActionWithdraw = "withdraw"
)

// ErrBadActionToken is returned when a token fails verification:
// wrong signature, expired, or claims of an unexpected shape.
var ErrBadActionToken = errors.New("bad action token")

// ActionToken represents a signed, short‑lived authorization for a
// single enrollment action.  The Token field contains the serialized
// JWT embedded into notices so that out‑of‑band consumers (mailers,
// portals) can render one‑click drop or withdraw links without a
// session.  Exp stores the expiration timestamp as a time.Time.
type ActionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// ActionClaims is the verified content of an action token.
type ActionClaims struct {
    StudentID uint64 // student the action applies to
    SectionID uint64 // section the action applies to
    Action    string // ActionDrop or ActionWithdraw
}

// NewActionToken builds and signs an HS256 JWT authorizing one action.
// The JWT carries the student as subject (sub), the section (sec),
// the action verb (act), expiration (exp) and issued at (iat).
func NewActionToken(secret string, studentID, sectionID uint64, action string, ttl time.Duration) (ActionToken, error) {
    // Calculate the expiration time by adding the TTL to the current UTC time.
    exp := time.Now().UTC().Add(ttl)
    claims := jwt.MapClaims{
        "sub": studentID,
        "sec": sectionID,
        "act": action,
        "exp": exp.Unix(),
        "iat": time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return ActionToken{}, err
    }
    return ActionToken{Token: signed, Exp: exp}, nil
}

// ParseActionToken verifies the signature and expiry of a token
// produced by NewActionToken and returns its claims.  Verification
// failures of any kind surface ErrBadActionToken so callers need a
// single comparison.
func ParseActionToken(secret, token string) (ActionClaims, error) {
    parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
        // Reject any algorithm other than the one we sign with.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return []byte(secret), nil
    })
    if err != nil || !parsed.Valid {
        return ActionClaims{}, fmt.Errorf("%w: %v", ErrBadActionToken, err)
    }
    claims, ok := parsed.Claims.(jwt.MapClaims)
    if !ok {
        return ActionClaims{}, ErrBadActionToken
    }
    student, ok := claimUint(claims, "sub")
    if !ok {
        return ActionClaims{}, ErrBadActionToken
    }
    section, ok := claimUint(claims, "sec")
    if !ok {
        return ActionClaims{}, ErrBadActionToken
    }
    action, _ := claims["act"].(string)
    if action != ActionDrop && action != ActionWithdraw {
        return ActionClaims{}, ErrBadActionToken
    }
    return ActionClaims{StudentID: student, SectionID: section, Action: action}, nil
}

// claimUint extracts a numeric claim.  JSON unmarshalling yields
// float64 for numbers, so the value is converted back to uint64.
func claimUint(claims jwt.MapClaims, key string) (uint64, bool) {
    f, ok := claims[key].(float64)
    if !ok || f < 0 {
        return 0, false
    }
    return uint64(f), true
}
