package version

import (
	"bookload/config"
	"context"
	"fmt"
	"runtime/debug"

	"github.com/spf13/pflag"
)

// Version is set at build time with -ldflags "-X bookload/command/version.Version=...".
var Version = ""

func NewVersionCommand() *VersionCommand {
	return &VersionCommand{}
}

type VersionCommand struct {
}

func (c *VersionCommand) Synopsis() string {
	return "print the version"
}

func (c *VersionCommand) Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("version", pflag.ContinueOnError)
	return flags
}

func (c *VersionCommand) Execute(ctx context.Context, config *config.Config, args []string) error {
	fmt.Println(current())
	return nil
}

func current() string {
	if Version != "" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}
