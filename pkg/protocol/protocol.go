package protocol

import "fmt"

// ID identifies one of the wire protocols the proxy can run.
// The set is closed: new protocols are added by declaring a new constant
// and extending the name table below.
type ID int

// Protocol constants, in fixed ordinal order. The ordinal is significant:
// score ties between candidates are broken by the lower ordinal so that
// selection is deterministic.
const (
	LegacyV1 ID = iota
	LegacyV2
	LegacyV3
	HTTPProxy
	SOCKS5
	Shadowsocks
	WebSocket
	QUIC
	TLSProxy
	ObliviousHTTP

	idCount // sentinel, keep last
)

// ErrUnknown is returned when a name or ordinal does not identify a
// member of the closed protocol set.
var ErrUnknown = fmt.Errorf("unknown protocol")

// names is the canonical name table. Names are stable: they appear in
// logs and negotiation payloads and must round-trip exactly through Parse.
var names = map[ID]string{
	LegacyV1:      "legacy-v1",
	LegacyV2:      "legacy-v2",
	LegacyV3:      "legacy-v3",
	HTTPProxy:     "http-proxy",
	SOCKS5:        "socks5",
	Shadowsocks:   "shadowsocks",
	WebSocket:     "websocket",
	QUIC:          "quic",
	TLSProxy:      "tls-proxy",
	ObliviousHTTP: "oblivious-http",
}

// byName is the reverse lookup table, built once at init.
var byName = func() map[string]ID {
	m := make(map[string]ID, len(names))
	for id, name := range names {
		m[name] = id
	}
	return m
}()

// String returns the canonical protocol name.
func (id ID) String() string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("protocol(%d)", int(id))
}

// Valid reports whether id is a member of the closed protocol set.
func (id ID) Valid() bool {
	return id >= 0 && id < idCount
}

// Parse converts a canonical protocol name back to its ID.
// Returns ErrUnknown for names outside the closed set.
func Parse(name string) (ID, error) {
	if id, ok := byName[name]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// All returns every protocol ID in ordinal order.
func All() []ID {
	ids := make([]ID, 0, idCount)
	for id := ID(0); id < idCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of protocols in the closed set.
func Count() int {
	return int(idCount)
}
