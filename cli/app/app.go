package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/dauction/cli/allowlist"
	"github.com/nspcc-dev/dauction/cli/query"
	"github.com/nspcc-dev/dauction/cli/server"
	"github.com/nspcc-dev/dauction/cli/signer"
	"github.com/nspcc-dev/dauction/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "dauction\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a dauction instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "dauction"
	ctl.Version = config.Version
	ctl.Usage = "Signed-authorization dutch auction node and tools"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, server.NewCommands()...)
	ctl.Commands = append(ctl.Commands, signer.NewCommands()...)
	ctl.Commands = append(ctl.Commands, allowlist.NewCommands()...)
	ctl.Commands = append(ctl.Commands, query.NewCommands()...)
	return ctl
}
