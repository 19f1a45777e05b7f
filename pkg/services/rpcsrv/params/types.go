package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

const (
	// maxBatchSize is the maximum number of requests per batch.
	maxBatchSize = 100
)

// Request contains standard JSON-RPC 2.0 request and batch of
// requests: http://www.jsonrpc.org/specification.
// It's used in server to represent incoming queries.
type Request struct {
	In    *In
	Batch Batch
}

// In represents a standard JSON-RPC 2.0
// request: http://www.jsonrpc.org/specification#request_object.
type In struct {
	JSONRPC   string          `json:"jsonrpc"`
	Method    string          `json:"method"`
	RawParams []Param         `json:"params,omitempty"`
	RawID     json.RawMessage `json:"id,omitempty"`
}

// Batch represents a standard JSON-RPC 2.0
// batch: https://www.jsonrpc.org/specification#batch.
type Batch []In

// MarshalJSON implements the json.Marshaler interface.
func (r Request) MarshalJSON() ([]byte, error) {
	if r.In != nil {
		return json.Marshal(r.In)
	}
	return json.Marshal(r.Batch)
}

// DecodeData decodes the given reader into the Request, batches of more
// than maxBatchSize requests are rejected.
func (r *Request) DecodeData(data io.ReadCloser) error {
	return r.decodeData(data, maxBatchSize)
}

// DecodeDataLimited is similar to DecodeData, but uses the given batch size
// limit.
func (r *Request) DecodeDataLimited(data io.ReadCloser, limit int) error {
	return r.decodeData(data, limit)
}

func (r *Request) decodeData(data io.ReadCloser, limit int) error {
	defer data.Close()

	rawData := json.RawMessage{}
	err := json.NewDecoder(data).Decode(&rawData)
	if err != nil {
		return err
	}
	return r.unmarshal(rawData, limit)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *Request) UnmarshalJSON(data []byte) error {
	return r.unmarshal(data, maxBatchSize)
}

func (r *Request) unmarshal(data []byte, limit int) error {
	var (
		in    *In
		batch Batch
	)
	in = &In{}
	err := json.Unmarshal(data, in)
	if err == nil {
		r.In = in
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	t, err := decoder.Token() // read `[`
	if err != nil {
		return err
	}
	if t != json.Delim('[') {
		return errors.New("`[` expected")
	}
	for decoder.More() {
		if len(batch) == limit {
			return errors.New("batch is too big")
		}
		in = &In{}
		err := decoder.Decode(in)
		if err != nil {
			return err
		}
		batch = append(batch, *in)
	}
	if len(batch) == 0 {
		return errors.New("empty batch")
	}
	r.Batch = batch
	return nil
}
