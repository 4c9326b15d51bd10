// Package types holds the wire vocabulary shared between the relay and its
// clients: the channel message envelope, the reserved channel names, and the
// JSON shapes carried on the structured channels.
package types

// WireMessage is the single envelope exchanged over the websocket, both
// directions: a channel name plus an opaque string payload. Payloads on all
// channels except "players" are AES-GCM sealed by the codec.
type WireMessage struct {
	State string `json:"state"`
	Data  string `json:"data"`
}

// Reserved and well-known channel names.
const (
	ChannelPlayers          = "players"
	ChannelRefresh          = "refresh"
	ChannelReshuffle        = "reshuffle"
	ChannelRound            = "round"
	ChannelHistory          = "history"
	ChannelAttackerPhase    = "attackerPhase"
	ChannelDefenderPhase    = "defenderPhase"
	ChannelAttackerState    = "attackerState"
	ChannelDefenderState    = "defenderState"
	ChannelAttackerMessages = "attackerMessages"
	ChannelDefenderMessages = "defenderMessages"
)

// Players is the plaintext payload broadcast on the "players" channel
// whenever a role slot changes occupancy.
type Players struct {
	Attacker string `json:"attacker"`
	Defender string `json:"defender"`
}
