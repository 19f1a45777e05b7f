package flags

import (
	"slices"
	"strings"

	"github.com/urfave/cli"
)

func eachName(longName string, fn func(string)) {
	parts := strings.Split(longName, ",")
	for _, name := range parts {
		name = strings.Trim(name, " ")
		fn(name)
	}
}

// MarkRequired marks flags with specified names as required. Only string,
// uint64 and bool flags can be marked.
func MarkRequired(flagSet []cli.Flag, names ...string) []cli.Flag {
	updated := make([]cli.Flag, 0, len(flagSet))
	for _, flag := range flagSet {
		if slices.Contains(names, flag.GetName()) {
			switch f := flag.(type) {
			case cli.StringFlag:
				f.Required = true
				flag = f
			case cli.Uint64Flag:
				f.Required = true
				flag = f
			case cli.BoolFlag:
				f.Required = true
				flag = f
			}
		}
		updated = append(updated, flag)
	}
	return updated
}

