// Package commands runs "cmd ..." lines typed into the terminal overlay. Each subcommand
// owns a flag.FlagSet; positional arguments after the flags are passed to Run.
package commands

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
)

const prefix = "cmd "

// ErrMissingSubcommand is returned for a bare "cmd" line.
var ErrMissingSubcommand = errors.New("missing subcommand")

// Command is a subcommand with its own flags. Run receives the positional arguments left
// after flag parsing.
type Command struct {
	Name    string
	Usage   string
	FlagSet *flag.FlagSet
	Run     func(args []string) error
}

// Registry holds subcommands by name and the sink their output goes to.
type Registry struct {
	cmds map[string]*Command
	out  func(string)
}

// NewRegistry returns an empty registry printing through out. A nil out discards output.
func NewRegistry(out func(string)) *Registry {
	if out == nil {
		out = func(string) {}
	}
	return &Registry{cmds: make(map[string]*Command), out: out}
}

// Register adds a subcommand. A nil fs gets an empty flag set.
func (r *Registry) Register(name, usage string, fs *flag.FlagSet, run func(args []string) error) {
	if fs == nil {
		fs = flag.NewFlagSet(name, flag.ContinueOnError)
	}
	fs.SetOutput(io.Discard)
	r.cmds[name] = &Command{Name: name, Usage: usage, FlagSet: fs, Run: run}
}

// Printf writes one formatted line to the registry's output.
func (r *Registry) Printf(format string, args ...any) {
	r.out(fmt.Sprintf(format, args...))
}

// Names lists registered subcommands alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.cmds))
	for n := range r.cmds {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Usage returns the usage line for name.
func (r *Registry) Usage(name string) (string, bool) {
	c, ok := r.cmds[name]
	if !ok {
		return "", false
	}
	return c.Usage, true
}

// Parse interprets line as a terminal line. If line starts with "cmd " (case-sensitive),
// the rest is tokenized by spaces and returned with ok true. Otherwise nil, false.
func Parse(line string) (args []string, ok bool) {
	if strings.TrimSpace(line) == strings.TrimSpace(prefix) {
		return nil, true
	}
	if !strings.HasPrefix(line, prefix) {
		return nil, false
	}
	rest := strings.TrimSpace(line[len(prefix):])
	if rest == "" {
		return nil, true
	}
	return strings.Fields(rest), true
}

// Execute runs the subcommand in args[0] with args[1:] as flag/positional arguments.
// Flags are reset to their defaults first so values never carry over between lines.
func (r *Registry) Execute(args []string) error {
	if len(args) == 0 {
		return ErrMissingSubcommand
	}
	name := args[0]
	cmd, ok := r.cmds[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}
	cmd.FlagSet.VisitAll(func(f *flag.Flag) { _ = f.Value.Set(f.DefValue) })
	if err := cmd.FlagSet.Parse(args[1:]); err != nil {
		return fmt.Errorf("%s: %w (usage: %s)", name, err, cmd.Usage)
	}
	return cmd.Run(cmd.FlagSet.Args())
}
