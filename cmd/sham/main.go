package main

import (
	"fmt"
	"os"

	"github.com/mwantia/sham/cmd/sham/cli"
	"github.com/mwantia/sham/cmd/sham/cli/client"
	"github.com/mwantia/sham/cmd/sham/cli/server"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	info := cli.VersionInfo{
		Version: version,
		Commit:  commit,
	}

	root := cli.NewRootCommand(info)

	root.AddCommand(cli.NewVersionCommand(info))

	root.AddCommand(server.NewAgentCommand())
	root.AddCommand(server.NewConfigCommand())
	root.AddCommand(server.NewMigrateCommand())

	root.AddCommand(client.NewAssetCommand())
	root.AddCommand(client.NewTagCommand())

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
