package rpcsrv

import (
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/dauction/pkg/rpcapi"
)

type (
	// subscriber is an event subscriber.
	subscriber struct {
		writer     chan<- *websocket.PreparedMessage
		overflown  atomic.Bool
		authorized bool
		// These work like slots as there is not a lot of them (it's
		// cheaper doing it this way rather than creating a map).
		feeds [maxFeeds]feed
	}
	// feed stores subscriber's desired event ID with filter.
	feed struct {
		event  rpcapi.EventID
		filter *rpcapi.EventFilter
	}
)

// matches returns true if the notification passes the feed.
func (f feed) matches(ntf *rpcapi.Notification) bool {
	if f.event != ntf.Event {
		return false
	}
	if f.filter == nil || len(ntf.Payload) == 0 {
		return true
	}
	ev, ok := ntf.Payload[0].(*rpcapi.AuctionEvent)
	return !ok || f.filter.Matches(ev)
}

const (
	// Maximum number of subscriptions per one client.
	maxFeeds = 16

	// This sets notification messages buffer depth. Operations emit a
	// handful of events each and batch refunds emit one per account, so
	// spikes are possible while the channel itself is cheap.
	notificationBufSize = 1024
)
