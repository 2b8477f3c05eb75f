/*
Package cli provides command-line helpers shared by the parley commands.

Output Formatting:

Commands that list things build a Table and let the --format flag pick the
formatter (text, JSON, CSV):

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	table := &cli.Table{Headers: []string{"id", "messages"}}
	table.AddRow("chat-1", "4")
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, table); err != nil {
		return err
	}

Status Lines:

Startup and one-shot commands report each step on its own line:

	status := cli.NewStatus(os.Stdout)
	status.Success("Configuration loaded")
	status.Warn("no provider has a credential")

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
