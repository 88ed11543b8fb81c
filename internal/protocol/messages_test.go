// internal/protocol/messages_test.go
package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duelpoint/arena/internal/models"
)

func TestCommandValidate(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		ok   bool
	}{
		{"join lobby", Command{Type: CmdJoinLobby, GameType: "chess"}, true},
		{"join lobby without game type", Command{Type: CmdJoinLobby}, false},
		{"create room", Command{Type: CmdCreateRoom, GameType: "chess", Bet: 10}, true},
		{"create room zero bet", Command{Type: CmdCreateRoom, GameType: "chess"}, false},
		{"create private room negative bet", Command{Type: CmdCreatePrivateRoom, GameType: "chess", Bet: -5}, false},
		{"join room", Command{Type: CmdJoinRoom, RoomID: uuid.New()}, true},
		{"join room without id", Command{Type: CmdJoinRoom}, false},
		{"get private room info", Command{Type: CmdGetPrivateRoomInfo, Token: "abc"}, true},
		{"join private room without token", Command{Type: CmdJoinPrivateRoom}, false},
		{"unknown type", Command{Type: "selfDestruct"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cmd.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestEventEnvelopeOmitsUnusedPayloads(t *testing.T) {
	ev := PrivateRoomCreated(InvitationCreated{
		Token:     "aabbcc",
		URL:       "http://localhost:3000/private-room/aabbcc",
		ExpiresAt: time.Now().Add(15 * time.Minute),
		Room:      models.RoomInfo{ID: uuid.New(), GameType: "chess", Bet: 10},
	})
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "type")
	assert.Contains(t, raw, "invitation")
	assert.NotContains(t, raw, "rooms")
	assert.NotContains(t, raw, "tournament")
	assert.NotContains(t, raw, "message")
}

func TestRoomsListNeverNull(t *testing.T) {
	data, err := json.Marshal(RoomsList(nil))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rooms":[]`)
}
