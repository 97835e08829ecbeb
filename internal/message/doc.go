// Package message defines the wire vocabulary shared by launch monitors and
// the simulator, and classifies raw frames into a closed set of kinds.
//
// Classification happens once, centrally:
//   - Classify tags monitor-origin frames (heartbeat, player-info, shot-data,
//     generic, malformed)
//   - ClassifySim tags simulator-origin frames (player-info v1, generic,
//     malformed) and extracts the routing player name
//
// Shape probing is confined to this package; routing code switches on the
// returned kind and never re-inspects JSON.
package message
