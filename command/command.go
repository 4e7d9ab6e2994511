package command

import (
	"bookload/config"
	"bookload/logging"
	"bookload/tracing"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/cli"
	"github.com/spf13/pflag"
)

const serviceName = "bookload"

// Command is a single cli verb. Execute receives the configuration after flags, the
// environment and the .env file have been merged.
type Command interface {
	Synopsis() string
	Flags() *pflag.FlagSet
	Execute(ctx context.Context, config *config.Config, args []string) error
}

func NewCommand(cmd Command) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &adapter{cmd: cmd}, nil
	}
}

type adapter struct {
	cmd Command
}

func (a *adapter) Synopsis() string {
	return a.cmd.Synopsis()
}

func (a *adapter) Help() string {
	sb := strings.Builder{}
	sb.WriteString(a.cmd.Synopsis())
	sb.WriteString("\n\nFlags:\n\n")
	sb.WriteString(a.flags().FlagUsages())
	return sb.String()
}

func (a *adapter) Run(args []string) int {
	flags := a.flags()
	if err := flags.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %s\n", err.Error())
		return 1
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.Configure(ctx, serviceName, cfg.Tracing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring tracing: %s\n", err.Error())
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdown(ctx)
	}()

	if err := a.cmd.Execute(ctx, cfg, flags.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		return 1
	}

	return 0
}

func (a *adapter) flags() *pflag.FlagSet {
	flags := a.cmd.Flags()
	flags.String("database-name", config.DefaultDatabaseFile, "path to the sqlite database")
	flags.String("log-level", logging.LevelInfo, "one of "+strings.Join(logging.Levels, ", "))
	flags.String("log-format", "text", "log output format, text or json")
	flags.Bool("tracing", false, "export traces with otlp")
	return flags
}
