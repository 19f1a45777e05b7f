/*
Package rpcapi contains the types used for JSON-RPC communication with the
auction node: basic request/response envelopes, errors, event notifications
and method-specific parameters and results.
*/
package rpcapi

import (
	"encoding/json"
)

const (
	// JSONRPCVersion is the only JSON-RPC protocol version supported.
	JSONRPCVersion = "2.0"
)

type (
	// Request represents a JSON-RPC request as it is sent by the client.
	Request struct {
		// JSONRPC is the protocol version, only valid when it contains JSONRPCVersion.
		JSONRPC string `json:"jsonrpc"`
		// Method is the method being called.
		Method string `json:"method"`
		// Params is a set of method-specific parameters passed to the call.
		// All auction methods expect params to be an array.
		Params []any `json:"params"`
		// ID is an identifier associated with this request.
		ID uint64 `json:"id"`
	}

	// Header is a generic JSON-RPC 2.0 response header (ID and JSON-RPC version).
	Header struct {
		ID      json.RawMessage `json:"id"`
		JSONRPC string          `json:"jsonrpc"`
	}

	// HeaderAndError adds an Error (that can be empty) to the Header, it's used
	// to construct type-specific responses.
	HeaderAndError struct {
		Header
		Error *Error `json:"error,omitempty"`
	}

	// Response represents a standard raw JSON-RPC 2.0 response.
	Response struct {
		HeaderAndError
		Result json.RawMessage `json:"result,omitempty"`
	}

	// Notification is a type used to represent wire format of events, they
	// look like requests but they don't have IDs and their "method" is
	// actually an event name.
	Notification struct {
		JSONRPC string  `json:"jsonrpc"`
		Event   EventID `json:"method"`
		Payload []any   `json:"params"`
	}
)
