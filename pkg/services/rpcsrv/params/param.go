package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Param represents a param either passed to the server or to be sent to a
// server using the client.
type Param struct {
	json.RawMessage
}

var (
	jsonNullBytes       = []byte("null")
	errMissingParameter = errors.New("parameter is missing")
	errNotAString       = errors.New("not a string")
	errNotAnInt         = errors.New("not an integer")
	errNotABool         = errors.New("not a boolean")
	errNotAnArray       = errors.New("not an array")
)

func (p Param) String() string {
	str, _ := p.GetString()
	return str
}

// GetString returns a string value of the parameter.
func (p *Param) GetString() (string, error) {
	if p == nil {
		return "", errMissingParameter
	}
	if p.IsNull() {
		return "", errNotAString
	}
	var s string
	if err := json.Unmarshal(p.RawMessage, &s); err != nil {
		return "", errNotAString
	}
	return s, nil
}

// GetBoolean returns a boolean value of the parameter.
func (p *Param) GetBoolean() (bool, error) {
	if p == nil {
		return false, errMissingParameter
	}
	var b bool
	if err := json.Unmarshal(p.RawMessage, &b); err != nil {
		return false, errNotABool
	}
	return b, nil
}

// GetUint64 returns an unsigned integer value of the parameter. Both JSON
// numbers and decimal strings are accepted.
func (p *Param) GetUint64() (uint64, error) {
	if p == nil {
		return 0, errMissingParameter
	}
	if p.IsNull() {
		return 0, errNotAnInt
	}
	var i uint64
	if err := json.Unmarshal(p.RawMessage, &i); err == nil {
		return i, nil
	}
	s, err := p.GetString()
	if err != nil {
		return 0, errNotAnInt
	}
	i, err = strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errNotAnInt
	}
	return i, nil
}

// GetInt returns an int value of the parameter, a decimal string is accepted
// as well.
func (p *Param) GetInt() (int, error) {
	if p == nil {
		return 0, errMissingParameter
	}
	if p.IsNull() {
		return 0, errNotAnInt
	}
	var i int
	if err := json.Unmarshal(p.RawMessage, &i); err == nil {
		return i, nil
	}
	s, err := p.GetString()
	if err != nil {
		return 0, errNotAnInt
	}
	i, err = strconv.Atoi(s)
	if err != nil {
		return 0, errNotAnInt
	}
	return i, nil
}

// GetAddress returns a 0x-prefixed hex account address.
func (p *Param) GetAddress() (common.Address, error) {
	s, err := p.GetString()
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// GetHash returns a 32-byte hex value.
func (p *Param) GetHash() (common.Hash, error) {
	b, err := p.GetBytesHex()
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

// GetBytesHex returns a []byte value of the 0x-prefixed hex parameter.
func (p *Param) GetBytesHex() ([]byte, error) {
	s, err := p.GetString()
	if err != nil {
		return nil, err
	}
	return hexutil.Decode(s)
}

// GetUint256 returns a wei amount given as a decimal string, a 0x-prefixed
// hex string or a JSON number.
func (p *Param) GetUint256() (*uint256.Int, error) {
	if p == nil {
		return nil, errMissingParameter
	}
	v := new(uint256.Int)
	if err := v.UnmarshalJSON(p.RawMessage); err != nil {
		return nil, err
	}
	return v, nil
}

// GetArray returns a slice of Params stored in the parameter.
func (p *Param) GetArray() ([]Param, error) {
	if p == nil {
		return nil, errMissingParameter
	}
	if p.IsNull() {
		return nil, errNotAnArray
	}
	a := []Param{}
	if err := json.Unmarshal(p.RawMessage, &a); err != nil {
		return nil, errNotAnArray
	}
	return a, nil
}

// GetHashes returns an array of 32-byte hex values, a Merkle proof.
func (p *Param) GetHashes() ([]common.Hash, error) {
	arr, err := p.GetArray()
	if err != nil {
		return nil, err
	}
	res := make([]common.Hash, len(arr))
	for i := range arr {
		res[i], err = arr[i].GetHash()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return res, nil
}

// GetAddresses returns an array of account addresses.
func (p *Param) GetAddresses() ([]common.Address, error) {
	arr, err := p.GetArray()
	if err != nil {
		return nil, err
	}
	res := make([]common.Address, len(arr))
	for i := range arr {
		res[i], err = arr[i].GetAddress()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return res, nil
}

// Decode unmarshals an object parameter into v, unknown fields are an error.
func (p *Param) Decode(v any) error {
	if p == nil {
		return errMissingParameter
	}
	jd := json.NewDecoder(bytes.NewReader(p.RawMessage))
	jd.DisallowUnknownFields()
	return jd.Decode(v)
}

// IsNull returns whether the parameter represents JSON nil value.
func (p *Param) IsNull() bool {
	return bytes.Equal(p.RawMessage, jsonNullBytes)
}
