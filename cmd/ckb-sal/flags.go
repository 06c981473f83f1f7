package main

import "flag"

// flagSet wraps flag.FlagSet so each subcommand gets its own named,
// ContinueOnError flag set rather than sharing the global flag.CommandLine.
type flagSet struct {
	*flag.FlagSet
}

func newCustomFlagSet(name string) *flagSet {
	return &flagSet{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError)}
}
