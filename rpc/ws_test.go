package rpc

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"refchain/core"
	"refchain/core/events"
	"refchain/core/types"
)

func TestEventStreamDeliversCommittedEvents(t *testing.T) {
	h := newHarness(t, ServerConfig{})
	srv := httptest.NewServer(h.server.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?type=" + events.TypeMintCredited
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	require.Eventually(t, func() bool { return h.server.Hub().Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = h.node.Mint(core.MintRequest{Recipient: [20]byte{0x09}, Asset: types.NativeAsset(), Amount: 77})
	require.NoError(t, err)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var evt types.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	require.Equal(t, events.TypeMintCredited, evt.Type)
	require.Equal(t, "77", evt.Attributes["amount"])
}

func TestHubDropsEventsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	updates, cancel := hub.Subscribe()
	for i := 0; i < subscriberCapacity+10; i++ {
		hub.Emit(events.MintCredited{Recipient: [20]byte{0x01}, Amount: uint64(i + 1)})
	}
	require.Len(t, updates, subscriberCapacity)
	cancel()
	cancel()
	require.Zero(t, hub.Subscribers())
	hub.Emit(events.MintCredited{Recipient: [20]byte{0x01}, Amount: 1})
}
