package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/auction"
	"github.com/nspcc-dev/dauction/pkg/rpcapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func httpURLtoWS(url string) string {
	return "ws" + strings.TrimPrefix(url, "http") + "/ws"
}

// initTestWSServer answers subscriptions with a fixed ID followed by a Bid
// notification, every other request gets a true result.
func initTestWSServer(t *testing.T, authHeader chan<- string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if authHeader != nil {
			authHeader <- req.Header.Get("Authorization")
		}
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			var r rpcapi.Request
			if err := ws.ReadJSON(&r); err != nil {
				return
			}
			resp := map[string]any{"jsonrpc": "2.0", "id": r.ID, "result": true}
			if r.Method == "subscribe" {
				resp["result"] = "0"
			}
			if err := ws.WriteJSON(resp); err != nil {
				return
			}
			if r.Method != "subscribe" {
				continue
			}
			ntf := rpcapi.Notification{
				JSONRPC: rpcapi.JSONRPCVersion,
				Event:   rpcapi.AuctionEventID,
				Payload: []any{&rpcapi.AuctionEvent{
					Name:     auction.BidEventName,
					Account:  &alice,
					Quantity: 2,
					Price:    uint256.NewInt(11),
					Amount:   uint256.NewInt(22),
				}},
			}
			if err := ws.WriteJSON(ntf); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWSClientClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := initTestWSServer(t, nil)
	wsc, err := NewWS(context.Background(), httpURLtoWS(srv.URL), Options{})
	require.NoError(t, err)
	wsc.Close()
	// Second call is no-op.
	wsc.Close()
	_, err = wsc.GetNonce(alice)
	require.ErrorIs(t, err, errConnClosedByUser)
	srv.Close()
}

func TestWSClientEvents(t *testing.T) {
	auth := make(chan string, 1)
	srv := initTestWSServer(t, auth)
	wsc, err := NewWS(context.Background(), httpURLtoWS(srv.URL), Options{Token: "token"})
	require.NoError(t, err)
	defer wsc.Close()
	assert.Equal(t, "Bearer token", <-auth)

	received := make(chan Notification, 1)
	go func() {
		for ntf := range wsc.Notifications {
			received <- ntf
		}
		close(received)
	}()

	name := auction.BidEventName
	id, err := wsc.SubscribeForAuctionEvents(&rpcapi.EventFilter{Name: &name, Account: &alice})
	require.NoError(t, err)
	assert.Equal(t, "0", id)

	select {
	case ntf := <-received:
		require.Equal(t, rpcapi.AuctionEventID, ntf.Type)
		ev, ok := ntf.Value.(*rpcapi.AuctionEvent)
		require.True(t, ok)
		assert.Equal(t, auction.BidEventName, ev.Name)
		assert.Equal(t, alice, *ev.Account)
		assert.Equal(t, uint256.NewInt(22), ev.Amount)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}

	require.Error(t, wsc.Unsubscribe("1"))
	require.NoError(t, wsc.Unsubscribe(id))
	require.Error(t, wsc.Unsubscribe(id))

	// Regular requests go through the same connection.
	require.NoError(t, wsc.Pause(testInv))
}

func TestDecodeNotification(t *testing.T) {
	for _, tc := range []struct {
		msg   string
		typ   rpcapi.EventID
		fails bool
	}{
		{msg: `{"jsonrpc":"2.0","method":"event_missed","params":[]}`, typ: rpcapi.MissedEventID},
		{msg: `{"jsonrpc":"2.0","method":"auction_event","params":[{"name":"Paused"}]}`, typ: rpcapi.AuctionEventID},
		{msg: `{"jsonrpc":"2.0","method":"auction_event","params":[]}`, fails: true},
		{msg: `{"jsonrpc":"2.0","method":"block_added","params":[]}`, fails: true},
	} {
		var m wsMessage
		require.NoError(t, json.Unmarshal([]byte(tc.msg), &m))
		ntf, err := decodeNotification(&m)
		if tc.fails {
			require.Error(t, err, tc.msg)
			continue
		}
		require.NoError(t, err, tc.msg)
		assert.Equal(t, tc.typ, ntf.Type)
	}
}
