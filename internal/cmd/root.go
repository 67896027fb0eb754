package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/vanpelt/rpsh/internal/config"
	"github.com/vanpelt/rpsh/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "rpsh",
	Short: "🖥️  rpsh - Remote shells through a webssh provisioning server",
	Long: `# 🖥️  rpsh

**Open a remote shell through a webssh style provisioning server.**

The server allocates a worker for your SSH connection, then the worker's
terminal is streamed to you over a websocket.

## ✨ Features

- 🔌 **connect** streams the remote shell straight into your terminal
- 📝 **form** is an interactive connection form with a built-in terminal
- 🔑 **Private keys** up to 16 KiB, passphrases via the password field
- ⚙️  **Config file** and `+"`RPSH_*`"+` environment variables

## 🚀 Getting Started

Run **rpsh connect --url http://server:4200/ --host 10.0.0.5 --user root** to open a shell.

Press **ctrl+]** to disconnect.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

var (
	configPath   string
	flagURL      string
	flagHost     string
	flagPort     string
	flagUser     string
	flagPassword string
	flagKeyFile  string
	flagLogLevel string
	flagLogFile  string
	flagInsecure bool

	settings config.Settings
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.Runtime.ConfigFile, "Config file")
	flags.StringVar(&flagURL, "url", "", "Provisioning server page URL (default http://localhost:4200/)")
	flags.StringVarP(&flagHost, "host", "H", "", "SSH hostname the server should connect to")
	flags.StringVarP(&flagPort, "port", "p", "", "SSH port (default 22)")
	flags.StringVarP(&flagUser, "user", "u", "", "SSH username")
	flags.StringVar(&flagPassword, "password", "", "SSH password, or the passphrase of an encrypted key")
	flags.StringVarP(&flagKeyFile, "key", "i", "", "Private key file")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&flagLogFile, "log-file", "", "Log file used while a terminal session is active")
	flags.BoolVar(&flagInsecure, "insecure", false, "Skip TLS certificate verification")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderMarkdownHelp(cmd)
	})
}

// loadSettings layers flags over the config file and environment
func loadSettings(cmd *cobra.Command, args []string) error {
	s, err := config.Load(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}

	overrides := []struct {
		name  string
		value string
		dest  *string
	}{
		{"url", flagURL, &s.URL},
		{"host", flagHost, &s.Hostname},
		{"port", flagPort, &s.Port},
		{"user", flagUser, &s.Username},
		{"password", flagPassword, &s.Password},
		{"key", flagKeyFile, &s.KeyFile},
		{"log-level", flagLogLevel, &s.LogLevel},
		{"log-file", flagLogFile, &s.LogFile},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.name) {
			*o.dest = o.value
		}
	}
	if cmd.Flags().Changed("insecure") {
		s.Insecure = flagInsecure
	}

	s.KeyFile = config.Runtime.ExpandHome(s.KeyFile)
	s.LogFile = config.Runtime.ExpandHome(s.LogFile)
	if err := s.Validate(); err != nil {
		return err
	}

	settings = s
	setupLogging(os.Stderr, true)
	return nil
}

// setupLogging points the global logger at w
func setupLogging(w io.Writer, pretty bool) {
	logger.Configure(logger.Options{
		Level:  logger.GetLogLevelFromEnv(logger.ParseLevel(settings.LogLevel)),
		Pretty: pretty,
		Output: w,
	})
}

// logToFile moves logging off the terminal while it is in use. The returned
// func closes the file.
func logToFile() (func(), error) {
	path := settings.LogFile
	if path == "" {
		setupLogging(io.Discard, false)
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	setupLogging(f, false)
	return func() {
		setupLogging(os.Stderr, true)
		_ = f.Close()
	}, nil
}

// renderMarkdownHelp renders command help using glamour
func renderMarkdownHelp(cmd *cobra.Command) {
	var helpContent strings.Builder

	if cmd.Long != "" {
		helpContent.WriteString(cmd.Long)
		helpContent.WriteString("\n\n")
	} else if cmd.Short != "" {
		helpContent.WriteString("# " + cmd.Short)
		helpContent.WriteString("\n\n")
	}

	helpContent.WriteString("## 📖 Usage\n\n")
	helpContent.WriteString("```bash\n")
	helpContent.WriteString(cmd.UseLine())
	helpContent.WriteString("\n```\n\n")

	if cmd.HasAvailableSubCommands() {
		helpContent.WriteString("## 🔧 Available Commands\n\n")
		for _, subCmd := range cmd.Commands() {
			if subCmd.IsAvailableCommand() {
				helpContent.WriteString(fmt.Sprintf("- **%s** - %s\n", subCmd.Name(), subCmd.Short))
			}
		}
		helpContent.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() {
		helpContent.WriteString("## ⚙️  Flags\n\n")
		helpContent.WriteString("```\n")
		helpContent.WriteString(cmd.LocalFlags().FlagUsages())
		helpContent.WriteString("```\n\n")
	}

	if cmd.HasAvailableInheritedFlags() {
		helpContent.WriteString("## 🌐 Global Flags\n\n")
		helpContent.WriteString("```\n")
		helpContent.WriteString(cmd.InheritedFlags().FlagUsages())
		helpContent.WriteString("```\n\n")
	}

	out := cmd.OutOrStdout()
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Fprint(out, helpContent.String())
		return
	}

	rendered, err := renderer.Render(helpContent.String())
	if err != nil {
		fmt.Fprint(out, helpContent.String())
		return
	}

	fmt.Fprint(out, rendered)
}
