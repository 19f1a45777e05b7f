package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/dauction/pkg/rpcapi"
)

// WSClient is a websocket-enabled RPC client that can be used with appropriate
// servers. It's supposed to be faster than Client because it has persistent
// connection to the server and at the same time it exposes some functionality
// that is only provided via websockets (like event subscription mechanism).
// WSClient is thread-safe and can be used from multiple goroutines.
type WSClient struct {
	Client
	// Notifications is a channel that is used to send events received from
	// the server. Client's code is supposed to be reading from this channel if
	// it wants to use subscription mechanism. Failing to do so will cause
	// WSClient to block even regular requests. This channel is not buffered.
	// It's closed when the connection is lost.
	Notifications chan Notification

	ws          *websocket.Conn
	done        chan struct{}
	requests    chan *rpcapi.Request
	shutdown    chan struct{}
	closeCalled atomic.Bool

	subscriptionsLock sync.Mutex
	subscriptions     map[string]bool

	respLock     sync.Mutex
	respChannels map[uint64]chan *rpcapi.Response
}

// Notification represents a server-generated notification for client
// subscriptions. Value is *rpcapi.AuctionEvent for rpcapi.AuctionEventID and
// nil for rpcapi.MissedEventID.
type Notification struct {
	Type  rpcapi.EventID
	Value any
}

// wsMessage is a combined type for notifications and responses since we can
// get any of them here.
type wsMessage struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id,omitempty"`
	Method  string            `json:"method,omitempty"`
	Params  []json.RawMessage `json:"params,omitempty"`
	Error   *rpcapi.Error     `json:"error,omitempty"`
	Result  json.RawMessage   `json:"result,omitempty"`
}

const (
	// Message limit for receiving side.
	wsReadLimit = 10 * 1024 * 1024

	// Disconnection timeout.
	wsPongLimit = 60 * time.Second

	// Ping period for connection liveness check.
	wsPingPeriod = wsPongLimit / 2

	// Write deadline.
	wsWriteLimit = wsPingPeriod / 2
)

// errConnClosedByUser is a WSClient error used iff the user calls
// WSClient.Close method by themselves.
var errConnClosedByUser = errors.New("connection closed by user")

// NewWS returns a new WSClient ready to use (with established websocket
// connection). You need to use websocket URL for it like `ws://1.2.3.4/ws`.
// The token from opts is sent in the handshake and authorizes write methods
// for the whole connection.
func NewWS(ctx context.Context, endpoint string, opts Options) (*WSClient, error) {
	wsc := &WSClient{
		Notifications: make(chan Notification),

		done:          make(chan struct{}),
		requests:      make(chan *rpcapi.Request),
		shutdown:      make(chan struct{}),
		subscriptions: make(map[string]bool),
		respChannels:  make(map[uint64]chan *rpcapi.Response),
	}
	err := initClient(ctx, &wsc.Client, endpoint, opts)
	if err != nil {
		return nil, err
	}
	wsc.Client.cli = nil

	var header http.Header
	if opts.Token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + opts.Token}}
	}
	dialer := websocket.Dialer{HandshakeTimeout: wsc.opts.DialTimeout}
	ws, resp, err := dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	wsc.ws = ws
	wsc.requestF = wsc.makeWsRequest
	go wsc.wsReader()
	go wsc.wsWriter()
	return wsc, nil
}

// Close closes connection to the remote side rendering this client instance
// unusable.
func (c *WSClient) Close() {
	if c.closeCalled.CompareAndSwap(false, true) {
		// Closing shutdown channel sends a signal to wsWriter to break out of the
		// loop. In doing so it does ws.Close() closing the network connection
		// which in turn makes wsReader receive an err from ws.ReadJSON() and also
		// break out of the loop closing c.done channel in its shutdown sequence.
		close(c.shutdown)
	}
	<-c.done
}

func (c *WSClient) wsReader() {
	c.ws.SetReadLimit(wsReadLimit)
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wsPongLimit))
	})
readloop:
	for {
		msg := new(wsMessage)
		err := c.ws.SetReadDeadline(time.Now().Add(wsPongLimit))
		if err != nil {
			break
		}
		err = c.ws.ReadJSON(msg)
		if err != nil {
			// Timeout/connection loss/malformed response.
			break
		}
		if msg.Method != "" {
			ntf, err := decodeNotification(msg)
			if err != nil {
				// Malformed notification.
				break
			}
			select {
			case c.Notifications <- ntf:
			case <-c.shutdown:
				break readloop
			}
			continue
		}
		id, err := strconv.ParseUint(string(msg.ID), 10, 64)
		if err != nil || (msg.Error == nil && msg.Result == nil) {
			// Malformed response, neither valid notification, nor valid response.
			break
		}
		resp := &rpcapi.Response{
			HeaderAndError: rpcapi.HeaderAndError{
				Header: rpcapi.Header{ID: msg.ID, JSONRPC: msg.JSONRPC},
				Error:  msg.Error,
			},
			Result: msg.Result,
		}
		c.respLock.Lock()
		ch, ok := c.respChannels[id]
		if ok {
			delete(c.respChannels, id)
		}
		c.respLock.Unlock()
		if ok {
			// Buffered, never blocks.
			ch <- resp
		}
	}
	close(c.done)
	close(c.Notifications)
}

func decodeNotification(msg *wsMessage) (Notification, error) {
	event, err := rpcapi.GetEventIDFromString(msg.Method)
	if err != nil {
		return Notification{}, err
	}
	ntf := Notification{Type: event}
	switch event {
	case rpcapi.AuctionEventID:
		if len(msg.Params) != 1 {
			return Notification{}, fmt.Errorf("unexpected number of %s parameters: %d", msg.Method, len(msg.Params))
		}
		ev := new(rpcapi.AuctionEvent)
		if err := json.Unmarshal(msg.Params[0], ev); err != nil {
			return Notification{}, err
		}
		ntf.Value = ev
	case rpcapi.MissedEventID:
	default:
		return Notification{}, fmt.Errorf("unexpected event %s", msg.Method)
	}
	return ntf, nil
}

func (c *WSClient) wsWriter() {
	pingTicker := time.NewTicker(wsPingPeriod)
	defer c.ws.Close()
	defer pingTicker.Stop()
	for {
		select {
		case <-c.shutdown:
			return
		case <-c.done:
			return
		case req := <-c.requests:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.RequestTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteJSON(req); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) unregisterRespChannel(id uint64) {
	c.respLock.Lock()
	delete(c.respChannels, id)
	c.respLock.Unlock()
}

func (c *WSClient) makeWsRequest(r *rpcapi.Request) (*rpcapi.Response, error) {
	ch := make(chan *rpcapi.Response, 1)
	c.respLock.Lock()
	c.respChannels[r.ID] = ch
	c.respLock.Unlock()

	select {
	case <-c.done:
		c.unregisterRespChannel(r.ID)
		return nil, c.connErr()
	case c.requests <- r:
	}

	t := time.NewTimer(c.opts.RequestTimeout)
	defer t.Stop()
	select {
	case <-c.done:
		c.unregisterRespChannel(r.ID)
		return nil, c.connErr()
	case <-t.C:
		c.unregisterRespChannel(r.ID)
		return nil, fmt.Errorf("request %d (%s) timed out", r.ID, r.Method)
	case <-c.ctx.Done():
		c.unregisterRespChannel(r.ID)
		return nil, c.ctx.Err()
	case resp := <-ch:
		return resp, nil
	}
}

func (c *WSClient) connErr() error {
	if c.closeCalled.Load() {
		return errConnClosedByUser
	}
	return errors.New("connection lost")
}

// SubscribeForAuctionEvents adds a subscription for auction events matching
// the filter (all of them if it's nil). It returns the subscription ID that
// can be used to unsubscribe.
func (c *WSClient) SubscribeForAuctionEvents(filter *rpcapi.EventFilter) (string, error) {
	params := []any{rpcapi.AuctionEventID.String()}
	if filter != nil {
		params = append(params, *filter)
	}
	var resp string
	if err := c.performRequest("subscribe", params, &resp); err != nil {
		return "", err
	}
	c.subscriptionsLock.Lock()
	c.subscriptions[resp] = true
	c.subscriptionsLock.Unlock()
	return resp, nil
}

// Unsubscribe removes the subscription with the given ID.
func (c *WSClient) Unsubscribe(id string) error {
	c.subscriptionsLock.Lock()
	defer c.subscriptionsLock.Unlock()

	if !c.subscriptions[id] {
		return errors.New("no subscription with this ID")
	}
	return c.performUnsubscription(id)
}

// UnsubscribeAll removes all active subscriptions of the current client.
func (c *WSClient) UnsubscribeAll() error {
	c.subscriptionsLock.Lock()
	defer c.subscriptionsLock.Unlock()

	for id := range c.subscriptions {
		if err := c.performUnsubscription(id); err != nil {
			return err
		}
	}
	return nil
}

// performUnsubscription is expected to be called with subscriptionsLock held.
func (c *WSClient) performUnsubscription(id string) error {
	var resp bool
	if err := c.performRequest("unsubscribe", []any{id}, &resp); err != nil {
		return err
	}
	if !resp {
		return errors.New("unsubscribe method returned false result")
	}
	delete(c.subscriptions, id)
	return nil
}
