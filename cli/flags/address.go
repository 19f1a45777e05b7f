package flags

import (
	"flag"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli"
)

// Address is a wrapper for an account address with flag.Value methods.
type Address struct {
	IsSet bool
	Value common.Address
}

// AddressFlag is a flag with type common.Address.
type AddressFlag struct {
	Name  string
	Usage string
	Value Address
}

var (
	_ flag.Value = (*Address)(nil)
	_ cli.Flag   = AddressFlag{}
)

// String implements the fmt.Stringer interface.
func (a Address) String() string {
	return a.Value.Hex()
}

// Set implements the flag.Value interface.
func (a *Address) Set(s string) error {
	addr, err := ParseAddress(s)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	a.IsSet = true
	a.Value = addr
	return nil
}

// Address returns the value, it panics if the flag is not set.
func (a *Address) Address() common.Address {
	if !a.IsSet {
		// It is a programmer error to call this method without
		// checking if the value was provided.
		panic("address was not set")
	}
	return a.Value
}

// IsSet checks if flag was set to a non-default value.
func (f AddressFlag) IsSet() bool {
	return f.Value.IsSet
}

// String returns a readable representation of this value
// (for usage defaults).
func (f AddressFlag) String() string {
	var names []string
	eachName(f.Name, func(name string) {
		names = append(names, getNameHelp(name))
	})

	return strings.Join(names, ", ") + "\t" + f.Usage
}

func getNameHelp(name string) string {
	if len(name) == 1 {
		return fmt.Sprintf("-%s value", name)
	}
	return fmt.Sprintf("--%s value", name)
}

// GetName returns the name of the flag.
func (f AddressFlag) GetName() string {
	return f.Name
}

// Apply populates the flag given the flag set and environment.
// Ignores errors.
func (f AddressFlag) Apply(set *flag.FlagSet) {
	eachName(f.Name, func(name string) {
		set.Var(&f.Value, name, f.Usage)
	})
}

// AddressFromContext returns the parsed address for the given flag name.
func AddressFromContext(ctx *cli.Context, name string) Address {
	return *ctx.Generic(name).(*Address)
}

// ParseAddress parses a 0x-prefixed (or bare) hex account address, the
// checksum of mixed-case input is verified.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	addr := common.HexToAddress(s)
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hex != strings.ToLower(hex) && hex != strings.ToUpper(hex) &&
		addr.Hex()[2:] != hex {
		return common.Address{}, fmt.Errorf("bad address checksum %q", s)
	}
	return addr, nil
}
