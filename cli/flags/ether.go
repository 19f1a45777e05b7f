package flags

import (
	"flag"
	"strings"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/dauction/pkg/encoding/ether"
	"github.com/urfave/cli"
)

// Ether is a wrapper for a wei amount set as a decimal ether string.
type Ether struct {
	Value *uint256.Int
}

// EtherFlag is a flag accepting amounts like "0.65".
type EtherFlag struct {
	Name  string
	Usage string
	Value Ether
}

var (
	_ flag.Value = (*Ether)(nil)
	_ cli.Flag   = EtherFlag{}
)

// String implements the fmt.Stringer interface.
func (e Ether) String() string {
	return ether.Format(e.Value)
}

// Set implements the flag.Value interface.
func (e *Ether) Set(s string) error {
	v, err := ether.Parse(s)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	e.Value = v
	return nil
}

// String returns a readable representation of this value
// (for usage defaults).
func (f EtherFlag) String() string {
	var names []string
	eachName(f.Name, func(name string) {
		names = append(names, getNameHelp(name))
	})

	return strings.Join(names, ", ") + "\t" + f.Usage
}

// GetName returns the name of the flag.
func (f EtherFlag) GetName() string {
	return f.Name
}

// Apply populates the flag given the flag set and environment.
// Ignores errors.
func (f EtherFlag) Apply(set *flag.FlagSet) {
	eachName(f.Name, func(name string) {
		set.Var(&f.Value, name, f.Usage)
	})
}

// EtherFromContext returns the wei amount for the given flag name, nil if
// it's not set.
func EtherFromContext(ctx *cli.Context, name string) *uint256.Int {
	return ctx.Generic(name).(*Ether).Value
}
