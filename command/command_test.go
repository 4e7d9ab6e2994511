package command

import (
	"bookload/config"
	"context"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCommand struct {
	name   string
	config *config.Config
	args   []string
	err    error
}

func (c *recordingCommand) Synopsis() string {
	return "records what it was run with"
}

func (c *recordingCommand) Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("recording", pflag.ContinueOnError)
	flags.StringVar(&c.name, "name", "", "a command specific flag")
	flags.Int("batch-size", 0, "records per transaction")
	return flags
}

func (c *recordingCommand) Execute(ctx context.Context, config *config.Config, args []string) error {
	c.config = config
	c.args = args
	return c.err
}

func run(t *testing.T, cmd Command, args ...string) int {
	t.Helper()

	factory := NewCommand(cmd)
	c, err := factory()
	require.NoError(t, err)

	return c.Run(args)
}

func TestRunPassesConfigAndArgs(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_TP_DATABASE_NAME", "from-env.db")

	cmd := &recordingCommand{}
	code := run(t, cmd, "--name", "dune", "--batch-size", "25", "books.csv")

	assert.Equal(t, 0, code)
	assert.Equal(t, "dune", cmd.name)
	assert.Equal(t, []string{"books.csv"}, cmd.args)
	require.NotNil(t, cmd.config)
	assert.Equal(t, 25, cmd.config.BatchSize)
	assert.Equal(t, "from-env.db", cmd.config.DatabaseFile)
}

func TestRunCommonFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := &recordingCommand{}
	code := run(t, cmd, "--database-name", "other.db", "--log-level", "DEBUG")

	assert.Equal(t, 0, code)
	assert.Equal(t, "other.db", cmd.config.DatabaseFile)
	assert.Equal(t, "DEBUG", cmd.config.LogLevel)
}

func TestRunFailures(t *testing.T) {
	t.Chdir(t.TempDir())

	assert.Equal(t, 1, run(t, &recordingCommand{}, "--unknown"))
	assert.Equal(t, 1, run(t, &recordingCommand{}, "--batch-size", "-1"))
	assert.Equal(t, 1, run(t, &recordingCommand{err: assert.AnError}))
}

func TestHelpListsFlags(t *testing.T) {
	c, err := NewCommand(&recordingCommand{})()
	require.NoError(t, err)

	help := c.Help()
	assert.Contains(t, help, "records what it was run with")
	assert.Contains(t, help, "--database-name")
	assert.Contains(t, help, "--name")
	assert.Equal(t, "records what it was run with", c.Synopsis())
}
