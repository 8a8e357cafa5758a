package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesRoundTrip(t *testing.T) {
	for _, id := range All() {
		parsed, err := Parse(id.String())
		require.NoError(t, err, "protocol %s", id)
		assert.Equal(t, id, parsed)
	}
}

func TestParseUnknown(t *testing.T) {
	_, err := Parse("carrier-pigeon")
	assert.ErrorIs(t, err, ErrUnknown)

	_, err = Parse("")
	assert.ErrorIs(t, err, ErrUnknown)

	// Names are exact, not case-folded.
	_, err = Parse("QUIC")
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestValid(t *testing.T) {
	assert.True(t, LegacyV1.Valid())
	assert.True(t, ObliviousHTTP.Valid())
	assert.False(t, ID(-1).Valid())
	assert.False(t, ID(Count()).Valid())
}

func TestStringOutsideSet(t *testing.T) {
	assert.Equal(t, "protocol(42)", ID(42).String())
}

func TestAllIsOrdinalOrdered(t *testing.T) {
	ids := All()
	require.Len(t, ids, Count())
	for i, id := range ids {
		assert.Equal(t, ID(i), id)
	}
}

func TestJSONUsesCanonicalNames(t *testing.T) {
	data, err := json.Marshal(QUIC)
	require.NoError(t, err)
	assert.Equal(t, `"quic"`, string(data))

	var id ID
	require.NoError(t, json.Unmarshal([]byte(`"socks5"`), &id))
	assert.Equal(t, SOCKS5, id)

	assert.Error(t, json.Unmarshal([]byte(`"telegraph"`), &id))

	_, err = json.Marshal(ID(42))
	assert.Error(t, err)
}

func TestJSONMapKeys(t *testing.T) {
	data, err := json.Marshal(map[ID]bool{WebSocket: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"websocket": true}`, string(data))

	var m map[ID]bool
	require.NoError(t, json.Unmarshal([]byte(`{"tls-proxy": false}`), &m))
	assert.Contains(t, m, TLSProxy)
}

func TestCharacteristicsHas(t *testing.T) {
	c := Characteristics{Encrypted: true, Reliable: true}

	assert.True(t, c.Has(FlagEncrypted))
	assert.True(t, c.Has(FlagReliable))
	assert.False(t, c.Has(FlagCompressed))
	assert.False(t, c.Has(Flag("nonsense")))

	assert.True(t, c.HasAll(nil))
	assert.True(t, c.HasAll([]Flag{FlagEncrypted, FlagReliable}))
	assert.False(t, c.HasAll([]Flag{FlagEncrypted, FlagStreaming}))
}

func TestValidFlag(t *testing.T) {
	assert.True(t, ValidFlag(FlagLowLatency))
	assert.True(t, ValidFlag(FlagCongestionOptimized))
	assert.False(t, ValidFlag(Flag("quantum_entangled")))
}

func TestDefaultCharacteristicsCoverEveryProtocol(t *testing.T) {
	table := DefaultCharacteristics()
	require.Len(t, table, Count())
	for _, id := range All() {
		assert.Contains(t, table, id)
	}
}
