package main

import (
	"bookload/command"
	"bookload/command/books"
	"bookload/command/import_books"
	"bookload/command/schema"
	"bookload/command/version"
	"fmt"
	"os"

	"github.com/hashicorp/cli"
)

func main() {

	commands := map[string]cli.CommandFactory{
		"version": command.NewCommand(version.NewVersionCommand()),

		"import": command.NewCommand(import_books.NewImportCommand()),

		"schema create": command.NewCommand(schema.NewCreateCommand()),

		"books list":   command.NewCommand(books.NewListCommand()),
		"books search": command.NewCommand(books.NewSearchCommand()),
	}

	cli := &cli.CLI{
		Name:                       "bookload",
		Args:                       os.Args[1:],
		Commands:                   commands,
		Autocomplete:               true,
		AutocompleteNoDefaultFlags: false,
	}

	exitCode, err := cli.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %s\n", err.Error())
	}

	os.Exit(exitCode)
}
