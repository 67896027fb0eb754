package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vanpelt/rpsh/internal/models"
	"github.com/vanpelt/rpsh/internal/recovery"
	"github.com/vanpelt/rpsh/internal/tui"
)

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "📝 Interactive connection form with a built-in terminal",
	Long: `# 📝 Connection Form

**Fill in the connection form** and the remote shell opens in place of it. When the
session ends you are back at the form with the server's closing message.

## ⌨️  Keys
- **tab** / **shift+tab** move between fields
- **enter** connects
- **ctrl+]** disconnects the running session
- **ctrl+q** quits

Values from flags, the config file and `+"`RPSH_*`"+` variables prefill the form.`,
	Args: cobra.NoArgs,
	RunE: runForm,
}

func init() {
	rootCmd.AddCommand(formCmd)
}

func runForm(cmd *cobra.Command, args []string) error {
	closeLog, err := logToFile()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	surface := tui.NewSurface()
	ctrl, err := newController(surface, surface.NewRenderer)
	if err != nil {
		return err
	}
	ctrl.Subscribe(func(models.Snapshot) { surface.Notify() })

	runCtx, cancel := context.WithCancel(ctx)
	recovery.SafeGo("session-controller", func() {
		_ = ctrl.Run(runCtx)
	})
	defer func() {
		cancel()
		<-ctrl.Done()
	}()

	app := tui.NewApp(ctrl, surface, tui.FormValues{
		Hostname: settings.Hostname,
		Port:     settings.Port,
		Username: settings.Username,
		Password: settings.Password,
		KeyFile:  settings.KeyFile,
	})
	return app.Run(ctx)
}
