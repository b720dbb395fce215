// Package main provides the fixpoint CLI for training, evaluating and plotting
// fixed-point networks.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

const version = "v0.1.0"

// command is one subcommand. run receives the arguments after the command name.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string, out io.Writer) error
}

var commands = []command{
	{"train", "Train a fixed-point network and write checkpoints", runTrain},
	{"eval", "Evaluate a saved checkpoint on a dataset", runEval},
	{"plot", "Render the training history of a checkpoint as PNG", runPlot},
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	name, args := os.Args[1], os.Args[2:]
	switch name {
	case "version":
		fmt.Printf("fixpoint %s\n", version)
		return
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "fixpoint: unknown command %q\n\n", name)
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := exceptions.TryCatch[error](func() {
		must.M(cmd.run(ctx, args, os.Stdout))
	})
	klog.Flush()
	if err != nil {
		klog.Exitf("fixpoint %s: %+v", name, err)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "fixpoint %s - fixed-point networks with implicit adjoint training\n\n", version)
	fmt.Fprintln(w, "Usage: fixpoint <command> [flags]")
	fmt.Fprintln(w, "\nCommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "  %-8s %s\n", "version", "Show version")
	fmt.Fprintln(w, "\nRun 'fixpoint <command> -h' for the flags of a command.")
}

// newFlagSet creates a subcommand flag set with the klog flags registered on it.
func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("fixpoint "+name, flag.ContinueOnError)
	fs.SetOutput(out)
	klog.InitFlags(fs)
	return fs
}
