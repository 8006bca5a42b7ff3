// Command farmctl is the terminal client of the farm measurement backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(deps{out: os.Stdout, errOut: os.Stderr})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd(d deps) *cobra.Command {
	if d.out == nil {
		d.out = io.Discard
	}
	if d.errOut == nil {
		d.errOut = io.Discard
	}
	a := &app{deps: d}

	root := &cobra.Command{
		Use:           "farmctl",
		Short:         "Record farm measurements from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(d.out)
	root.SetErr(d.errOut)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.farmform/config.yaml)")
	root.PersistentFlags().StringVar(&a.locale, "locale", "", "message locale (es or en)")

	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		registerCmd(a),
		fieldsCmd(a),
		pensCmd(a),
		variablesCmd(a),
		measureCmd(a),
		reportsCmd(a),
		analyticsCmd(a),
		syncCmd(a),
		queueCmd(a),
		warmupCmd(a),
		apiCmd(a),
	)
	return root
}
