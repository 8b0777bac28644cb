// Package remove implements the delete command.
package remove

import (
	"context"
	"io"

	"github.com/paclair/paclair/cmd/paclair/internal/helper"
	"github.com/paclair/paclair/internal/cmdlogger"
	"github.com/urfave/cli/v3"
)

func Command(_, _ io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "deletes images or archives from Clair",
		ArgsUsage: "<plugin> <name> [name...]",
		Action:    action,
	}
}

func action(ctx context.Context, cmd *cli.Command) error {
	plugin, names, err := helper.Arguments(cmd)
	if err != nil {
		return err
	}

	p, err := helper.LoadPaClair(cmd)
	if err != nil {
		return err
	}

	return helper.ForEach(plugin, names, func(name string) error {
		if err := p.Delete(ctx, plugin, name); err != nil {
			return err
		}
		cmdlogger.Infof("%s was deleted from Clair.", name)

		return nil
	})
}
