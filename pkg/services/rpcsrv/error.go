package rpcsrv

import (
	"net/http"

	"github.com/nspcc-dev/dauction/pkg/rpcapi"
)

// abstractResult is an interface which represents either single JSON-RPC 2.0 response
// or batch JSON-RPC 2.0 response.
type abstractResult interface {
	RunForErrors(f func(jsonErr *rpcapi.Error))
}

// abstract represents abstract JSON-RPC 2.0 response. It is used as a server-side response
// representation.
type abstract struct {
	rpcapi.Header
	Error  *rpcapi.Error `json:"error,omitempty"`
	Result any           `json:"result,omitempty"`
}

// RunForErrors implements abstractResult interface.
func (a abstract) RunForErrors(f func(jsonErr *rpcapi.Error)) {
	if a.Error != nil {
		f(a.Error)
	}
}

// abstractBatch represents abstract JSON-RPC 2.0 batch-response.
type abstractBatch []abstract

// RunForErrors implements abstractResult interface.
func (ab abstractBatch) RunForErrors(f func(jsonErr *rpcapi.Error)) {
	for _, a := range ab {
		if a.Error != nil {
			f(a.Error)
		}
	}
}

func getHTTPCodeForError(respErr *rpcapi.Error) int {
	if respErr.HTTPCode != 0 {
		return respErr.HTTPCode
	}
	return http.StatusUnprocessableEntity
}
