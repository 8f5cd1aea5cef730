package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parleybot/parley/adapters/console"
	"github.com/parleybot/parley/internal/logutil"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a tenant on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			rt, err := newRuntime(logger, nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if _, err := rt.start(ctx); err != nil {
				return err
			}

			adapter, err := console.New(console.Options{
				Sink:       rt.bus,
				Logger:     logger,
				In:         os.Stdin,
				Out:        os.Stdout,
				SessionID:  viper.GetString("chat.session"),
				SenderName: viper.GetString("chat.sender"),
			})
			if err != nil {
				return err
			}
			logger.Info("chat_start", "origin", adapter.Origin())

			// Run until stdin closes or the process is signalled, then let
			// in-flight replies land before exiting.
			runErr := adapter.Run(ctx)
			rt.shutdown(5 * time.Second)
			return runErr
		},
	}

	cmd.Flags().String("chat-session", "local", "Conversation id for the console session.")
	cmd.Flags().String("chat-sender", "", "Display name for the console sender.")

	_ = viper.BindPFlag("chat.session", cmd.Flags().Lookup("chat-session"))
	_ = viper.BindPFlag("chat.sender", cmd.Flags().Lookup("chat-sender"))

	return cmd
}
