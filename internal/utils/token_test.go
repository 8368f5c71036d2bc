package utils

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestActionTokenRoundTrip(t *testing.T) {
    tok, err := NewActionToken("s3cret", 42, 7, ActionWithdraw, time.Hour)
    require.NoError(t, err)
    require.NotEmpty(t, tok.Token)
    assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), tok.Exp, 5*time.Second)

    claims, err := ParseActionToken("s3cret", tok.Token)
    require.NoError(t, err)
    assert.Equal(t, uint64(42), claims.StudentID)
    assert.Equal(t, uint64(7), claims.SectionID)
    assert.Equal(t, ActionWithdraw, claims.Action)
}

func TestParseActionTokenRejects(t *testing.T) {
    tok, err := NewActionToken("s3cret", 42, 7, ActionDrop, time.Hour)
    require.NoError(t, err)

    _, err = ParseActionToken("wrong-secret", tok.Token)
    assert.ErrorIs(t, err, ErrBadActionToken)

    _, err = ParseActionToken("s3cret", "not-a-jwt")
    assert.ErrorIs(t, err, ErrBadActionToken)

    expired, err := NewActionToken("s3cret", 42, 7, ActionDrop, -time.Minute)
    require.NoError(t, err)
    _, err = ParseActionToken("s3cret", expired.Token)
    assert.ErrorIs(t, err, ErrBadActionToken)
}
