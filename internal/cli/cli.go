// Package cli parses the piano command line.
package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Command string

const (
	CommandDaemon    Command = "daemon"
	CommandPlay      Command = "play"
	CommandPause     Command = "pause"
	CommandResume    Command = "resume"
	CommandNext      Command = "next"
	CommandStation   Command = "station"
	CommandStations  Command = "stations"
	CommandStatus    Command = "status"
	CommandStop      Command = "stop"
	CommandListen    Command = "listen"
	CommandActivity  Command = "activity"
	CommandShutdown  Command = "shutdown"
	CommandConfigure Command = "configure"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

// Parsed is the resolved invocation.
type Parsed struct {
	Command    Command
	ConfigPath string
	Text       string
	JSON       bool
	ShowHelp   bool
}

type spec struct {
	command Command
	short   string
	args    cobra.PositionalArgs
	use     string
	json    bool
}

var commands = []spec{
	{command: CommandDaemon, short: "Run the owner daemon in the foreground", args: cobra.NoArgs},
	{command: CommandPlay, short: "Start or resume playback, optionally on a named station", args: cobra.ArbitraryArgs, use: "play [UTTERANCE...]"},
	{command: CommandPause, short: "Pause playback", args: cobra.NoArgs},
	{command: CommandResume, short: "Resume playback", args: cobra.NoArgs},
	{command: CommandNext, short: "Skip the current song", args: cobra.NoArgs},
	{command: CommandStation, short: "Switch to the station best matching the utterance", args: cobra.MinimumNArgs(1), use: "station UTTERANCE..."},
	{command: CommandStations, short: "List known stations", args: cobra.NoArgs, json: true},
	{command: CommandStatus, short: "Print session state and the current song", args: cobra.NoArgs, json: true},
	{command: CommandStop, short: "Pause playback and keep the player ready", args: cobra.NoArgs},
	{command: CommandListen, short: "Pause while the assistant listens", args: cobra.NoArgs},
	{command: CommandActivity, short: "Extend an assistant-listening pause", args: cobra.NoArgs},
	{command: CommandShutdown, short: "Quit the player and stop the owner daemon", args: cobra.NoArgs},
	{command: CommandConfigure, short: "Write the player config from account settings", args: cobra.NoArgs},
	{command: CommandDoctor, short: "Run configuration and environment checks", args: cobra.NoArgs},
	{command: CommandVersion, short: "Print version information", args: cobra.NoArgs},
}

// Parse resolves args into one command. Help requests set ShowHelp.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	root := newRootCommand("piano", &parsed)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

// HelpText renders usage for the whole command tree.
func HelpText(binaryName string) string {
	return newRootCommand(binaryName, &Parsed{}).UsageString()
}

func newRootCommand(binaryName string, parsed *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           binaryName,
		Short:         "Voice-driven Pandora control through pianobar",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				parsed.Command = CommandVersion
				parsed.ShowHelp = false
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetHelpFunc(func(*cobra.Command, []string) {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
	})

	configFlag(root.PersistentFlags(), &parsed.ConfigPath)
	root.Flags().BoolVar(&showVersion, "version", false, "Show version")

	for _, s := range commands {
		root.AddCommand(newSubcommand(s, parsed))
	}
	return root
}

func newSubcommand(s spec, parsed *Parsed) *cobra.Command {
	use := s.use
	if use == "" {
		use = string(s.command)
	}

	var asJSON bool
	cmd := &cobra.Command{
		Use:   use,
		Short: s.short,
		Args:  s.args,
		RunE: func(_ *cobra.Command, args []string) error {
			parsed.Command = s.command
			parsed.ShowHelp = false
			parsed.Text = strings.TrimSpace(strings.Join(args, " "))
			parsed.JSON = asJSON
			return nil
		},
	}
	if s.json {
		cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw owner response as JSON")
	}
	return cmd
}

func configFlag(flags *pflag.FlagSet, target *string) {
	flags.StringVarP(target, "config", "c", "", "Config file path (default: $XDG_CONFIG_HOME/piano/config.jsonc)")
}
