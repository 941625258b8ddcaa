package cmd

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

//go:embed templates/bailer.yaml
var configTemplate []byte

//go:embed templates/workspace.yaml
var workspaceTemplate []byte

// InitCommand returns the init command, which scaffolds a starter config
// and workspace in the current directory.
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write starter bailer.yaml and workspace.yaml files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing files",
			},
		},
		Action: initAction,
	}
}

func initAction(c *cli.Context) error {
	files := []struct {
		path    string
		content []byte
	}{
		{"bailer.yaml", configTemplate},
		{"workspace.yaml", workspaceTemplate},
	}

	force := c.Bool("force")
	for _, f := range files {
		if !force {
			if _, err := os.Stat(f.path); err == nil {
				return cli.Exit(fmt.Sprintf("%s already exists (use --force to overwrite)", f.path), 1)
			}
		}
		if err := os.WriteFile(f.path, f.content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
		fmt.Printf("wrote %s\n", f.path)
	}
	return nil
}
