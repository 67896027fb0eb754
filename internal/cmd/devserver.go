package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vanpelt/rpsh/internal/fakeserver"
)

var devserverCmd = &cobra.Command{
	Use:    "devserver",
	Short:  "🧪 Run a fake provisioning server with echo workers",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runDevserver,
}

var (
	devListen   string
	devBasePath string
	devDeny     string
	devRecycle  time.Duration
)

func init() {
	rootCmd.AddCommand(devserverCmd)

	devserverCmd.Flags().StringVarP(&devListen, "listen", "l", "127.0.0.1:4200", "Address to listen on")
	devserverCmd.Flags().StringVar(&devBasePath, "base-path", "/", "Path the page is mounted at")
	devserverCmd.Flags().StringVar(&devDeny, "deny", "", "Refuse every request with this status message")
	devserverCmd.Flags().DurationVar(&devRecycle, "recycle", fakeserver.DefaultRecycleAfter, "Recycle workers not attached within this time")
}

func runDevserver(cmd *cobra.Command, args []string) error {
	opts := fakeserver.Options{
		Addr:         devListen,
		BasePath:     devBasePath,
		RecycleAfter: devRecycle,
	}
	if devDeny != "" {
		opts.Provision = fakeserver.DenyAll(devDeny)
	}

	srv, err := fakeserver.Start(opts)
	if err != nil {
		return err
	}
	defer srv.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "🧪 fake provisioning server listening on %s\n", srv.URL())
	fmt.Fprintf(cmd.OutOrStdout(), "   workers echo input, type exit + enter to close a session\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
