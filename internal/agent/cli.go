package agent

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juliansj/crouton/internal/logging"
	"github.com/juliansj/crouton/pkg/cleanup"
	"github.com/juliansj/crouton/pkg/relay"
)

func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "croutond [flags]",
		Short:        "Start the reference host agent for the command relay",
		Example:      "  croutond --dir /run/crouton/ext --echo",
		Version:      "0.0.1",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			lock, _ := cmd.Flags().GetString("lock")
			echo, _ := cmd.Flags().GetBool("echo")
			transform, _ := cmd.Flags().GetString("transform")
			timeout, _ := cmd.Flags().GetDuration("reply-timeout")
			logfile, _ := cmd.Flags().GetString("log")
			debug, _ := cmd.Flags().GetBool("debug")

			opts := Options{
				Dir:          dir,
				LockPath:     lock,
				Echo:         echo,
				Transform:    transform,
				Version:      cmd.Root().Version,
				ReplyTimeout: timeout,
			}

			if logfile != "" {
				logger, err := logging.NewLogger(logfile, debug)
				if err != nil {
					return fmt.Errorf("initialise logging: %w", err)
				}
				opts.Logger = logger
			}

			a := New(opts)

			teardown, err := a.Setup()
			if err != nil {
				return fmt.Errorf("set up transport: %w", err)
			}

			// The cleanup stack is the sole signal owner: on
			// SIGINT, SIGHUP or SIGTERM it removes the transport
			// files and exits with the sentinel code. Cancelling
			// the command context is the graceful path.
			cleanup.Push(teardown)
			defer cleanup.Run()

			if err := a.Serve(cmd.Context()); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringP("dir", "", relay.DefaultDir, "Transport directory for the FIFO pair")
	cmd.Flags().StringP("lock", "", relay.DefaultLockPath, "Lock file serializing transactions")
	cmd.Flags().BoolP("echo", "e", false, "Echo unknown requests back verbatim")
	cmd.Flags().StringP("transform", "", "", "awk program applied to each request before dispatch")
	cmd.Flags().DurationP("reply-timeout", "", relay.DefaultTimeout, "How long to wait for a response reader")
	cmd.Flags().StringP("log", "l", "", "Destination to write logs (default is stderr)")
	cmd.Flags().BoolP("debug", "d", false, "Enable debug logging")

	return cmd
}
