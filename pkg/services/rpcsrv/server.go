package rpcsrv

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/auction"
	"github.com/nspcc-dev/dauction/pkg/config"
	"github.com/nspcc-dev/dauction/pkg/core/inventory"
	"github.com/nspcc-dev/dauction/pkg/core/state"
	"github.com/nspcc-dev/dauction/pkg/crypto/bidsig"
	"github.com/nspcc-dev/dauction/pkg/rpcapi"
	"github.com/nspcc-dev/dauction/pkg/services/rpcsrv/params"
	"go.uber.org/zap"
)

type (
	// Ledger abstracts away the sale as used by the RPC server.
	Ledger interface {
		Bid(ic *auction.Invocation, req auction.BidRequest) (*auction.BidResult, error)
		ClaimTokens(ic *auction.Invocation, quantity uint64, recipient common.Address) (uint64, error)
		ClaimTokensFor(ic *auction.Invocation, account common.Address, quantity uint64) (uint64, error)
		ClaimRefund(ic *auction.Invocation, account common.Address, proof []common.Hash) (*uint256.Int, error)
		RefundUsers(ic *auction.Invocation, accounts []common.Address, proofs [][]common.Hash) ([]auction.RefundResult, error)
		WithdrawFunds(ic *auction.Invocation) (*uint256.Int, error)
		SetConfig(ic *auction.Invocation, cfg state.SaleConfig) error
		Pause(ic *auction.Invocation) error
		Unpause(ic *auction.Invocation) error
		SetSignerAddress(ic *auction.Invocation, addr common.Address) error
		SetTreasuryAddress(ic *auction.Invocation, addr common.Address) error
		SetNftContractAddress(ic *auction.Invocation, addr common.Address) error
		SetAllowlistRoot(ic *auction.Invocation, root common.Hash) error
		GrantAdmin(ic *auction.Invocation, account common.Address) error
		RevokeAdmin(ic *auction.Invocation, account common.Address) error

		Domain() bidsig.Domain
		GetConfig() (*state.SaleConfig, error)
		GetCurrentPriceInWei(now uint64) (*uint256.Int, error)
		GetUserData(account common.Address) (*auction.UserData, error)
		GetNonce(account common.Address) (uint64, error)
		Claimable(account common.Address, now uint64) (uint64, error)
		RefundDue(account common.Address) (*uint256.Int, error)
		GetState() (*auction.SaleState, error)
		Settings() (*state.Settings, error)

		SubscribeForEvents(ch chan<- auction.Event)
		UnsubscribeFromEvents(ch chan<- auction.Event)
	}

	// Payouts is the record of payments made by the sale.
	Payouts interface {
		Get(addr common.Address) (*state.Payout, error)
		All() (map[common.Address]*state.Payout, error)
	}

	// Inventories resolves inventory contracts by address.
	Inventories interface {
		Get(addr common.Address) (*inventory.Inventory, error)
	}

	// Server represents the JSON-RPC 2.0 server.
	Server struct {
		http        []*http.Server
		sale        Ledger
		payouts     Payouts
		inventories Inventories
		config      config.RPC
		// wsReadLimit represents web-socket message limit for a receiving side.
		wsReadLimit int64
		upgrader    websocket.Upgrader
		log         *zap.Logger
		shutdown    chan struct{}
		started     atomic.Bool
		errChan     chan error
		// now returns the sale clock in Unix seconds.
		now func() uint64

		subsLock    sync.RWMutex
		subscribers map[*subscriber]bool

		subsCounterLock sync.RWMutex
		auctionSubs     int

		eventCh chan auction.Event
	}
)

const (
	// Disconnection timeout.
	wsPongLimit = 60 * time.Second

	// Ping period for connection liveness check.
	wsPingPeriod = wsPongLimit / 2

	// Write deadline.
	wsWriteLimit = wsPingPeriod / 2

	// Message limit for a receiving side.
	wsReadLimit = 1024 * 1024
)

var rpcHandlers = map[string]func(*Server, params.Params) (any, *rpcapi.Error){
	"getclaimable":    (*Server).getClaimable,
	"getconfig":       (*Server).getConfig,
	"getcurrentprice": (*Server).getCurrentPrice,
	"getinventory":    (*Server).getInventory,
	"getnonce":        (*Server).getNonce,
	"getpayouts":      (*Server).getPayouts,
	"getrefund":       (*Server).getRefund,
	"getsalestate":    (*Server).getSaleState,
	"getuserdata":     (*Server).getUserData,
	"getversion":      (*Server).getVersion,
}

// rpcWriteHandlers change the sale state and require authorization. Their
// first parameter is always the invocation.
var rpcWriteHandlers = map[string]func(*Server, *auction.Invocation, params.Params) (any, *rpcapi.Error){
	"bid":                   (*Server).bid,
	"claimrefund":           (*Server).claimRefund,
	"claimtokens":           (*Server).claimTokens,
	"claimtokensfor":        (*Server).claimTokensFor,
	"grantadmin":            (*Server).grantAdmin,
	"pause":                 (*Server).pause,
	"refundusers":           (*Server).refundUsers,
	"revokeadmin":           (*Server).revokeAdmin,
	"setallowlistroot":      (*Server).setAllowlistRoot,
	"setconfig":             (*Server).setConfig,
	"setnftcontractaddress": (*Server).setNftContractAddress,
	"setsigneraddress":      (*Server).setSignerAddress,
	"settreasuryaddress":    (*Server).setTreasuryAddress,
	"unpause":               (*Server).unpause,
	"withdrawfunds":         (*Server).withdrawFunds,
}

var rpcWsHandlers = map[string]func(*Server, params.Params, *subscriber) (any, *rpcapi.Error){
	"subscribe":   (*Server).subscribe,
	"unsubscribe": (*Server).unsubscribe,
}

// New creates a new Server struct.
func New(sale Ledger, payouts Payouts, inventories Inventories, conf config.RPC,
	log *zap.Logger, errChan chan error) *Server {
	if conf.MaxWebSocketClients == 0 {
		conf.MaxWebSocketClients = config.DefaultMaxWebSocketClients
		log.Info("MaxWebSocketClients is not set or wrong, setting default value", zap.Int("MaxWebSocketClients", conf.MaxWebSocketClients))
	}
	if conf.MaxBatchSize <= 0 {
		conf.MaxBatchSize = config.DefaultMaxBatchSize
	}
	if conf.MaxRequestBodyBytes <= 0 {
		conf.MaxRequestBodyBytes = config.DefaultMaxRequestBodyBytes
	}
	if conf.AuthToken == "" {
		log.Info("AuthToken is not set, write methods are disabled")
	}
	srvs := make([]*http.Server, len(conf.Addresses))
	for i, addr := range conf.Addresses {
		srvs[i] = &http.Server{Addr: addr}
	}
	return &Server{
		http:        srvs,
		sale:        sale,
		payouts:     payouts,
		inventories: inventories,
		config:      conf,
		wsReadLimit: wsReadLimit,
		log:         log.With(zap.String("service", "rpc")),
		shutdown:    make(chan struct{}),
		errChan:     errChan,
		now:         func() uint64 { return uint64(time.Now().Unix()) },

		subscribers: make(map[*subscriber]bool),
		// Not buffered to preserve original order of events.
		eventCh: make(chan auction.Event),
	}
}

// Name returns service name.
func (s *Server) Name() string {
	return "rpc"
}

// Addresses returns the actual bind addresses, valid after Start.
func (s *Server) Addresses() []string {
	res := make([]string, len(s.http))
	for i, srv := range s.http {
		res[i] = srv.Addr
	}
	return res
}

// Start creates a new JSON-RPC server listening on the configured addresses.
// It creates goroutines needed internally and it returns its errors via
// errChan passed to New(). The Server only starts once, subsequent calls to
// Start are no-op.
func (s *Server) Start() {
	if !s.config.Enabled {
		s.log.Info("RPC server is not enabled")
		return
	}
	if !s.started.CompareAndSwap(false, true) {
		s.log.Info("RPC server already started")
		return
	}
	go s.handleSubEvents()
	for _, srv := range s.http {
		srv.Handler = http.HandlerFunc(s.handleHTTPRequest)
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			s.errChan <- err
			return
		}
		srv.Addr = ln.Addr().String() // set Addr to the actual address
		s.log.Info("starting rpc-server", zap.String("endpoint", srv.Addr))
		go func(srv *http.Server) {
			err := srv.Serve(ln)
			if !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("failed to start RPC server", zap.Error(err))
				s.errChan <- err
			}
		}(srv)
	}
}

// Shutdown stops the RPC server if it's running. It can only be called once,
// subsequent calls to Shutdown on the same instance are no-op. The instance
// that was stopped can not be started again by calling Start (use a new
// instance if needed).
func (s *Server) Shutdown() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	// Signal to websocket writer routines and handleSubEvents.
	close(s.shutdown)

	for _, srv := range s.http {
		s.log.Info("shutting down RPC server", zap.String("endpoint", srv.Addr))
		err := srv.Shutdown(context.Background())
		if err != nil {
			s.log.Warn("error during RPC server shutdown", zap.Error(err))
		}
	}

	// Wait for handleSubEvents to finish.
	<-s.eventCh
}

func (s *Server) handleHTTPRequest(w http.ResponseWriter, httpRequest *http.Request) {
	req := new(params.Request)
	authorized := s.authorized(httpRequest)

	if httpRequest.URL.Path == "/ws" && httpRequest.Method == http.MethodGet {
		// Technically there is a race between this check and
		// s.subscribers modification below, but it's tiny
		// and not really critical to bother with it.
		s.subsLock.RLock()
		numOfSubs := len(s.subscribers)
		s.subsLock.RUnlock()
		if numOfSubs >= s.config.MaxWebSocketClients {
			s.writeHTTPErrorResponse(new(params.In), w,
				rpcapi.NewInternalServerError("websocket users limit reached"))
			return
		}
		ws, err := s.upgrader.Upgrade(w, httpRequest, nil)
		if err != nil {
			s.log.Info("websocket connection upgrade failed", zap.Error(err))
			return
		}
		resChan := make(chan abstractResult) // abstract or abstractBatch
		subChan := make(chan *websocket.PreparedMessage, notificationBufSize)
		subscr := &subscriber{writer: subChan, authorized: authorized}
		s.subsLock.Lock()
		s.subscribers[subscr] = true
		s.subsLock.Unlock()
		go s.handleWsWrites(ws, resChan, subChan)
		s.handleWsReads(ws, resChan, subscr)
		return
	}

	if httpRequest.Method != http.MethodPost {
		s.writeHTTPErrorResponse(new(params.In), w,
			rpcapi.NewInvalidRequestError(fmt.Sprintf("invalid method '%s', please retry with 'POST'", httpRequest.Method)))
		return
	}

	body := http.MaxBytesReader(w, httpRequest.Body, int64(s.config.MaxRequestBodyBytes))
	err := req.DecodeDataLimited(body, s.config.MaxBatchSize)
	if err != nil {
		s.writeHTTPErrorResponse(new(params.In), w, rpcapi.NewParseError(err.Error()))
		return
	}

	resp := s.handleRequest(req, nil, authorized)
	s.writeHTTPServerResponse(req, w, resp)
}

// authorized checks the bearer token of the request.
func (s *Server) authorized(r *http.Request) bool {
	if s.config.AuthToken == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AuthToken)) == 1
}

func (s *Server) handleRequest(req *params.Request, sub *subscriber, authorized bool) abstractResult {
	if req.In != nil {
		req.In.Method = escapeForLog(req.In.Method) // No valid method name will be changed by it.
		return s.handleIn(req.In, sub, authorized)
	}
	resp := make(abstractBatch, len(req.Batch))
	for i, in := range req.Batch {
		in.Method = escapeForLog(in.Method) // No valid method name will be changed by it.
		resp[i] = s.handleIn(&in, sub, authorized)
	}
	return resp
}

func (s *Server) handleIn(req *params.In, sub *subscriber, authorized bool) abstract {
	var res any
	var resErr *rpcapi.Error
	if req.JSONRPC != rpcapi.JSONRPCVersion {
		return s.packResponse(req, nil, rpcapi.NewInvalidRequestError(fmt.Sprintf("problem parsing JSON: invalid version, expected 2.0 got '%s'", req.JSONRPC)))
	}

	reqParams := params.Params(req.RawParams)
	reqID := uuid.New()

	s.log.Debug("processing rpc request",
		zap.Stringer("id", reqID),
		zap.String("method", req.Method),
		zap.Stringer("params", reqParams))

	start := time.Now()
	defer func() { addReqTimeMetric(req.Method, time.Since(start)) }()

	resErr = rpcapi.NewMethodNotFoundError(fmt.Sprintf("method %q not supported", req.Method))
	if handler, ok := rpcHandlers[req.Method]; ok {
		res, resErr = handler(s, reqParams)
	} else if handler, ok := rpcWriteHandlers[req.Method]; ok {
		res, resErr = s.handleWrite(handler, reqParams, authorized)
	} else if sub != nil {
		if handler, ok := rpcWsHandlers[req.Method]; ok {
			res, resErr = handler(s, reqParams, sub)
		}
	}
	if resErr != nil && resErr.Code == rpcapi.InternalServerErrorCode {
		resErr = rpcapi.WrapErrorWithData(resErr, fmt.Sprintf("%s (request %s)", resErr.Data, reqID))
	}
	return s.packResponse(req, res, resErr)
}

func (s *Server) handleWrite(handler func(*Server, *auction.Invocation, params.Params) (any, *rpcapi.Error),
	reqParams params.Params, authorized bool) (any, *rpcapi.Error) {
	if s.config.AuthToken == "" {
		return nil, rpcapi.ErrWritesDisabled
	}
	if !authorized {
		return nil, rpcapi.ErrUnauthorized
	}
	var inv rpcapi.Invocation
	if err := reqParams.Value(0).Decode(&inv); err != nil {
		return nil, rpcapi.WrapErrorWithData(rpcapi.ErrInvalidParams, fmt.Sprintf("invalid invocation: %s", err))
	}
	ic := &auction.Invocation{
		Caller: inv.Caller,
		Value:  inv.Value,
		Time:   s.now(),
	}
	return handler(s, ic, reqParams[1:])
}

func (s *Server) handleWsWrites(ws *websocket.Conn, resChan <-chan abstractResult, subChan <-chan *websocket.PreparedMessage) {
	pingTicker := time.NewTicker(wsPingPeriod)
eventloop:
	for {
		select {
		case <-s.shutdown:
			break eventloop
		case event, ok := <-subChan:
			if !ok {
				break eventloop
			}
			if err := ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
				break eventloop
			}
			if err := ws.WritePreparedMessage(event); err != nil {
				break eventloop
			}
		case res, ok := <-resChan:
			if !ok {
				break eventloop
			}
			if err := ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
				break eventloop
			}
			if err := ws.WriteJSON(res); err != nil {
				break eventloop
			}
		case <-pingTicker.C:
			if err := ws.SetWriteDeadline(time.Now().Add(wsWriteLimit)); err != nil {
				break eventloop
			}
			if err := ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				break eventloop
			}
		}
	}
	ws.Close()
	pingTicker.Stop()
	// Drain notification channel as there might be some goroutines blocked
	// on it.
drainloop:
	for {
		select {
		case _, ok := <-subChan:
			if !ok {
				break drainloop
			}
		default:
			break drainloop
		}
	}
}

func (s *Server) handleWsReads(ws *websocket.Conn, resChan chan<- abstractResult, subscr *subscriber) {
	ws.SetReadLimit(s.wsReadLimit)
	err := ws.SetReadDeadline(time.Now().Add(wsPongLimit))
	ws.SetPongHandler(func(string) error { return ws.SetReadDeadline(time.Now().Add(wsPongLimit)) })
requestloop:
	for err == nil {
		req := new(params.Request)
		err := ws.ReadJSON(req)
		if err != nil {
			break
		}
		res := s.handleRequest(req, subscr, subscr.authorized)
		res.RunForErrors(func(jsonErr *rpcapi.Error) {
			s.logRequestError(req, jsonErr)
		})
		select {
		case <-s.shutdown:
			break requestloop
		case resChan <- res:
		}
	}

	s.subsLock.Lock()
	delete(s.subscribers, subscr)
	s.subsLock.Unlock()
	s.subsCounterLock.Lock()
	for _, e := range subscr.feeds {
		if e.event != rpcapi.InvalidEventID {
			s.unsubscribeFromChannel()
		}
	}
	s.subsCounterLock.Unlock()
	close(resChan)
	ws.Close()
}

func (s *Server) packResponse(r *params.In, result any, respErr *rpcapi.Error) abstract {
	resp := abstract{
		Header: rpcapi.Header{
			JSONRPC: rpcapi.JSONRPCVersion,
			ID:      r.RawID,
		},
	}
	if respErr != nil {
		resp.Error = respErr
	} else {
		resp.Result = result
	}
	return resp
}

// logRequestError is a request error logger.
func (s *Server) logRequestError(r *params.Request, jsonErr *rpcapi.Error) {
	logFields := []zap.Field{
		zap.Int64("code", jsonErr.Code),
	}
	if len(jsonErr.Data) != 0 {
		logFields = append(logFields, zap.String("cause", jsonErr.Data))
	}

	if r.In != nil {
		logFields = append(logFields, zap.String("method", r.In.Method))
		params := params.Params(r.In.RawParams)
		logFields = append(logFields, zap.Stringer("params", params))
	}

	logText := "Error encountered with rpc request"
	switch jsonErr.Code {
	case rpcapi.InternalServerErrorCode:
		s.log.Error(logText, logFields...)
	default:
		s.log.Info(logText, logFields...)
	}
}

// writeHTTPErrorResponse writes an error response to the ResponseWriter.
func (s *Server) writeHTTPErrorResponse(r *params.In, w http.ResponseWriter, jsonErr *rpcapi.Error) {
	resp := s.packResponse(r, nil, jsonErr)
	s.writeHTTPServerResponse(&params.Request{In: r}, w, resp)
}

func (s *Server) writeHTTPServerResponse(r *params.Request, w http.ResponseWriter, resp abstractResult) {
	// Errors can happen in many places and we can only catch ALL of them here.
	resp.RunForErrors(func(jsonErr *rpcapi.Error) {
		s.logRequestError(r, jsonErr)
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if r.In != nil {
		resp := resp.(abstract)
		if resp.Error != nil {
			w.WriteHeader(getHTTPCodeForError(resp.Error))
		}
	}

	encoder := json.NewEncoder(w)
	err := encoder.Encode(resp)

	if err != nil {
		switch {
		case r.In != nil:
			s.log.Error("Error encountered while encoding response",
				zap.String("err", err.Error()),
				zap.String("method", r.In.Method))
		case r.Batch != nil:
			s.log.Error("Error encountered while encoding batch response",
				zap.String("err", err.Error()))
		}
	}
}

func escapeForLog(in string) string {
	return strings.Map(func(c rune) rune {
		if !strconv.IsGraphic(c) {
			return -1
		}
		return c
	}, in)
}
