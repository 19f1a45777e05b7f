package rpcsrv

import (
	"encoding/json"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/nspcc-dev/dauction/pkg/rpcapi"
	"github.com/nspcc-dev/dauction/pkg/services/rpcsrv/params"
	"go.uber.org/zap"
)

// subscribe handles subscription requests from websocket clients.
func (s *Server) subscribe(reqParams params.Params, sub *subscriber) (any, *rpcapi.Error) {
	streamName, err := reqParams.Value(0).GetString()
	if err != nil {
		return nil, rpcapi.ErrInvalidParams
	}
	event, err := rpcapi.GetEventIDFromString(streamName)
	if err != nil || event == rpcapi.MissedEventID {
		return nil, rpcapi.ErrInvalidParams
	}
	// Optional filter.
	var filter *rpcapi.EventFilter
	if p := reqParams.Value(1); p != nil {
		filter = new(rpcapi.EventFilter)
		if err := p.Decode(filter); err != nil {
			return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, err.Error())
		}
	}

	s.subsLock.Lock()
	var id int
	for ; id < len(sub.feeds); id++ {
		if sub.feeds[id].event == rpcapi.InvalidEventID {
			break
		}
	}
	if id == len(sub.feeds) {
		s.subsLock.Unlock()
		return nil, rpcapi.NewInternalServerError("maximum number of subscriptions is reached")
	}
	sub.feeds[id].event = event
	sub.feeds[id].filter = filter
	s.subsLock.Unlock()

	s.subsCounterLock.Lock()
	select {
	case <-s.shutdown:
		s.subsCounterLock.Unlock()
		return nil, rpcapi.NewInternalServerError("server is shutting down")
	default:
	}
	s.subscribeToChannel()
	s.subsCounterLock.Unlock()
	return strconv.FormatInt(int64(id), 10), nil
}

// subscribeToChannel subscribes RPC server to auction events if it's not yet
// subscribed for them. It's supposed to be called with s.subsCounterLock
// taken by the caller.
func (s *Server) subscribeToChannel() {
	if s.auctionSubs == 0 {
		s.sale.SubscribeForEvents(s.eventCh)
	}
	s.auctionSubs++
}

// unsubscribe handles unsubscription requests from websocket clients.
func (s *Server) unsubscribe(reqParams params.Params, sub *subscriber) (any, *rpcapi.Error) {
	id, err := reqParams.Value(0).GetInt()
	if err != nil || id < 0 {
		return nil, rpcapi.ErrInvalidParams
	}
	s.subsLock.Lock()
	if len(sub.feeds) <= id || sub.feeds[id].event == rpcapi.InvalidEventID {
		s.subsLock.Unlock()
		return nil, rpcapi.ErrInvalidParams
	}
	sub.feeds[id].event = rpcapi.InvalidEventID
	sub.feeds[id].filter = nil
	s.subsLock.Unlock()

	s.subsCounterLock.Lock()
	s.unsubscribeFromChannel()
	s.subsCounterLock.Unlock()
	return true, nil
}

// unsubscribeFromChannel unsubscribes RPC server from auction events if
// there are no other subscribers for it. It must be called with
// s.subsCounterLock holding by the caller.
func (s *Server) unsubscribeFromChannel() {
	if s.auctionSubs == 0 {
		return
	}
	s.auctionSubs--
	if s.auctionSubs == 0 {
		s.sale.UnsubscribeFromEvents(s.eventCh)
	}
}

func (s *Server) handleSubEvents() {
	b, err := json.Marshal(rpcapi.Notification{
		JSONRPC: rpcapi.JSONRPCVersion,
		Event:   rpcapi.MissedEventID,
		Payload: make([]any, 0),
	})
	if err != nil {
		s.log.Error("fatal: failed to marshal overflow event", zap.Error(err))
		return
	}
	overflowMsg, err := websocket.NewPreparedMessage(websocket.TextMessage, b)
	if err != nil {
		s.log.Error("fatal: failed to prepare overflow message", zap.Error(err))
		return
	}
chloop:
	for {
		var resp = rpcapi.Notification{
			JSONRPC: rpcapi.JSONRPCVersion,
			Event:   rpcapi.AuctionEventID,
			Payload: make([]any, 1),
		}
		var msg *websocket.PreparedMessage
		select {
		case <-s.shutdown:
			break chloop
		case e := <-s.eventCh:
			resp.Payload[0] = rpcapi.NewAuctionEvent(e)
		}
		s.subsLock.RLock()
	subloop:
		for sub := range s.subscribers {
			if sub.overflown.Load() {
				continue
			}
			for i := range sub.feeds {
				if !sub.feeds[i].matches(&resp) {
					continue
				}
				if msg == nil {
					b, err = json.Marshal(resp)
					if err != nil {
						s.log.Error("failed to marshal notification",
							zap.Error(err),
							zap.String("type", resp.Event.String()))
						break subloop
					}
					msg, err = websocket.NewPreparedMessage(websocket.TextMessage, b)
					if err != nil {
						s.log.Error("failed to prepare notification message",
							zap.Error(err),
							zap.String("type", resp.Event.String()))
						break subloop
					}
				}
				select {
				case sub.writer <- msg:
				default:
					sub.overflown.Store(true)
					// MissedEvent is to be delivered eventually.
					go func(sub *subscriber) {
						sub.writer <- overflowMsg
						sub.overflown.Store(false)
					}(sub)
				}
				// The message is sent only once per subscriber.
				break
			}
		}
		s.subsLock.RUnlock()
	}
	// The sale may be blocked sending to eventCh while holding its
	// subscription lock, so unsubscribe concurrently with draining.
	unsubscribed := make(chan struct{})
	go func() {
		s.subsCounterLock.Lock()
		s.sale.UnsubscribeFromEvents(s.eventCh)
		s.auctionSubs = 0
		s.subsCounterLock.Unlock()
		close(unsubscribed)
	}()
drainloop:
	for {
		select {
		case <-s.eventCh:
		case <-unsubscribed:
			break drainloop
		}
	}
	// It's not required closing it, but since it's drained already
	// this is safe and it also allows to give a signal to Shutdown routine.
	close(s.eventCh)
}
