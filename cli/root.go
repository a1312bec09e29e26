package cli

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/goto/salt/cmdx"
	"github.com/spf13/cobra"
)

var envHelp = map[string]string{
	"short": "List of supported environment variables",
	"long": heredoc.Doc(`
		Every configuration key can be set from the environment with the
		SIEVE_ prefix, nested keys joined by an underscore.

		SIEVE_LOG_LEVEL: debug, info, warn or error.

		SIEVE_STORE_DRIVER: sqlite, postgres, redis or memory.

		SIEVE_STORE_KEY: key the last view configuration is saved under.

		SIEVE_BROKER_ENABLED: publish view changes to AMQP when true.
	`),
}

func New(cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	var rootCmd = &cobra.Command{
		Use:           "sieve <command> <subcommand> [flags]",
		Short:         "Sort and filter records",
		Long:          "Sort and filter quiz records and remember the last used view.",
		SilenceErrors: true,
		SilenceUsage:  false,
		Example: heredoc.Doc(`
		$ sieve view apply -f questions.yaml --sort created_at --desc
		$ sieve view show
		$ sieve store migrate
		`),
		Annotations: map[string]string{
			"group": "core",
			"help:learn": heredoc.Doc(`
				Use 'sieve <command> --help' for info about a command.
			`),
		},
	}

	rootCmd.AddCommand(
		viewCommand(cfg),
		storeCommand(cfg),
		configCommand(cfg),
		versionCmd(),
	)

	// Help topics
	rootCmd.AddCommand(cmdx.SetCompletionCmd(appName))
	rootCmd.AddCommand(cmdx.SetRefCmd(rootCmd))
	rootCmd.AddCommand(cmdx.SetHelpTopicCmd("environment", envHelp))
	cmdx.SetHelp(rootCmd)

	rootCmd.PersistentFlags().StringP(configFlag, "c", "", "Override config file")

	return rootCmd
}
