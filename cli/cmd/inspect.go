package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/gunwale-io/bailer/cli/reader"
	"github.com/gunwale-io/bailer/cli/render"
)

// InspectCommand returns the inspect command.
// Inspect decodes a dump file without executing anything.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect a dump file (seeds, scan points, test result)",
		ArgsUsage: "<dump-file>",
		Flags:     TUIReadOnlyFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("dump file required", 1)
	}
	path := c.Args().First()

	view, err := reader.InspectDump(path)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_dump", view)
	}

	return r.Render(view)
}
