// Command quanta is a terminal chat client. It keeps the conversation in a
// local store and gets replies from a quanta relay server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quanta",
		Short:         "Chat with QuantaAI from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	chatCmd := newChatCmd()
	root.AddCommand(chatCmd, newRenderCmd())
	root.RunE = chatCmd.RunE
	root.Flags().AddFlagSet(chatCmd.Flags())
	return root
}
