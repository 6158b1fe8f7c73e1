package ledger

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentity(t *testing.T) {
	hexID := strings.Repeat("ab", IdentitySize)

	t.Run("valid", func(t *testing.T) {
		id, err := ParseIdentity(hexID)
		require.NoError(t, err)
		assert.Equal(t, hexID, id.String())
		assert.False(t, id.IsZero())
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := ParseIdentity("abcd")
		assert.Error(t, err)
	})

	t.Run("not hex", func(t *testing.T) {
		_, err := ParseIdentity(strings.Repeat("zz", IdentitySize))
		assert.Error(t, err)
	})

	t.Run("zero value is invalid", func(t *testing.T) {
		var id Identity
		assert.True(t, id.IsZero())
	})
}

func TestIdentity_JSON(t *testing.T) {
	id := MustParseIdentity(strings.Repeat("01", IdentitySize))

	payload, err := json.Marshal(map[string]Identity{"actor": id})
	require.NoError(t, err)
	assert.Contains(t, string(payload), id.String())

	var decoded struct {
		Actor Identity `json:"actor"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, id, decoded.Actor)
}

func TestIdentity_Scan(t *testing.T) {
	id := MustParseIdentity(strings.Repeat("7f", IdentitySize))

	raw, err := id.Value()
	require.NoError(t, err)

	var scanned Identity
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, id, scanned)

	assert.Error(t, scanned.Scan([]byte{1, 2, 3}))
	assert.Error(t, scanned.Scan(int64(1)))
}
