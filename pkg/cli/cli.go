// Package cli implements the liquid command.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/liquid/internal/bytecode"
	"github.com/funvibe/liquid/internal/config"
	"github.com/funvibe/liquid/internal/render"
	"github.com/funvibe/liquid/internal/vm"
	"github.com/funvibe/liquid/pkg/liquid"
)

// CompiledFileExt is the suffix of files written by `liquid compile`.
const CompiledFileExt = ".lbc"

const usage = `Usage: %[1]s <command> [flags] [template]

Commands:
  render   render a template (reads the template from stdin when none is given)
  disasm   print the bytecode of a template
  compile  compile a template to %[2]s
  run      render a %[2]s file with the VM
  help     show this message

Common flags:
  -config file    liquid.yaml or liquid.toml (default: discovered in the working directory)
  -env file       dotenv file with LIQUID_* overrides (default: .env if present)
  -data file      YAML or JSON context data, "-" for stdin
  -backend name   vm or tree
  -mode name      strict, warn or lax
  -v n            log verbosity
`

// App is one invocation of the command.
type App struct {
	Name   string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// StdinIsTerminal reports whether Stdin is interactive.
	StdinIsTerminal func() bool
}

// NewApp wires an App to the process's standard streams.
func NewApp() *App {
	return &App{
		Name:   filepath.Base(os.Args[0]),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		StdinIsTerminal: func() bool {
			fd := os.Stdin.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
	}
}

// Run executes args (without the program name) and returns the exit code.
func (a *App) Run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintf(a.Stderr, usage, a.Name, CompiledFileExt)
		return 2
	}

	var err error
	switch args[0] {
	case "render":
		err = a.handleRender(args[1:])
	case "disasm":
		err = a.handleDisasm(args[1:])
	case "compile":
		err = a.handleCompile(args[1:])
	case "run":
		err = a.handleRunCompiled(args[1:])
	case "help", "-help", "--help", "-h":
		fmt.Fprintf(a.Stdout, usage, a.Name, CompiledFileExt)
		return 0
	default:
		fmt.Fprintf(a.Stderr, "Unknown command %q\n", args[0])
		fmt.Fprintf(a.Stderr, usage, a.Name, CompiledFileExt)
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(a.Stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

// options are the flags shared by every command.
type options struct {
	configPath string
	envPath    string
	dataPath   string
	backend    string
	mode       string
	verbosity  int
	output     string

	cfg *config.Config
}

func (a *App) flags(name string, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Stderr)
	fs.StringVar(&opts.configPath, "config", "", "configuration file")
	fs.StringVar(&opts.envPath, "env", "", "dotenv file with LIQUID_* overrides (default: .env if present)")
	fs.StringVar(&opts.dataPath, "data", "", "YAML or JSON context data")
	fs.StringVar(&opts.backend, "backend", "", "vm or tree")
	fs.StringVar(&opts.mode, "mode", "", "strict, warn or lax")
	fs.IntVar(&opts.verbosity, "v", -1, "log verbosity")
	return fs
}

// setup loads the configuration, applies LIQUID_* variables and then flag
// overrides, and configures logging.
func (o *options) setup() error {
	var err error
	if o.configPath != "" {
		o.cfg, err = config.Load(o.configPath)
	} else {
		o.cfg, err = config.Discover(".")
	}
	if err != nil {
		return err
	}
	vars, err := config.ReadEnv(o.envPath)
	if err != nil {
		return err
	}
	if err := o.cfg.ApplyEnv(vars); err != nil {
		return err
	}
	if o.backend != "" {
		o.cfg.Backend = o.backend
	}
	if o.mode != "" {
		o.cfg.Mode = o.mode
	}
	if o.verbosity >= 0 {
		o.cfg.Log.Verbosity = o.verbosity
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}

	var logPath *string
	if o.cfg.Log.File != "" {
		logPath = &o.cfg.Log.File
	}
	commonlog.Configure(o.cfg.Log.Verbosity, logPath)
	return nil
}

// template loads the named template file, or stdin when name is empty.
func (a *App) template(env *liquid.Environment, name string) (*liquid.Template, error) {
	if name != "" {
		source, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading template: %w", err)
		}
		return env.FromStringNamed(name, string(source), nil)
	}
	if a.StdinIsTerminal() {
		return nil, fmt.Errorf("no template given and stdin is a terminal")
	}
	source, err := io.ReadAll(a.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return env.FromString(string(source))
}

// data decodes context data. JSON documents are valid YAML, so one
// decoder serves both.
func (a *App) data(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(a.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding data %s: %w", path, err)
	}
	return data, nil
}

func (a *App) environment(opts *options) (*liquid.Environment, error) {
	return liquid.NewEnvironment(liquid.WithConfig(opts.cfg))
}

func (a *App) handleRender(args []string) error {
	var opts options
	fs := a.flags("render", &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := opts.setup(); err != nil {
		return err
	}
	if opts.dataPath == "-" && fs.NArg() == 0 {
		return fmt.Errorf("stdin cannot hold both the template and the data")
	}

	env, err := a.environment(&opts)
	if err != nil {
		return err
	}
	defer env.Close()

	tmpl, err := a.template(env, fs.Arg(0))
	if err != nil {
		return err
	}
	data, err := a.data(opts.dataPath)
	if err != nil {
		return err
	}
	out, err := tmpl.Render(data)
	io.WriteString(a.Stdout, out)
	return err
}

func (a *App) handleDisasm(args []string) error {
	var opts options
	fs := a.flags("disasm", &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.backend = config.BackendVM
	if err := opts.setup(); err != nil {
		return err
	}

	env, err := a.environment(&opts)
	if err != nil {
		return err
	}
	defer env.Close()

	tmpl, err := a.template(env, fs.Arg(0))
	if err != nil {
		return err
	}
	listing, err := tmpl.Disassemble()
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.Stdout, listing)
	return err
}

// handleCompile compiles a template to a CBOR bytecode file.
func (a *App) handleCompile(args []string) error {
	var opts options
	fs := a.flags("compile", &opts)
	fs.StringVar(&opts.output, "o", "", "output file (default: template name with "+CompiledFileExt+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.backend = config.BackendVM
	if err := opts.setup(); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("compile takes exactly one template file")
	}
	sourcePath := fs.Arg(0)

	env, err := a.environment(&opts)
	if err != nil {
		return err
	}
	defer env.Close()

	tmpl, err := a.template(env, sourcePath)
	if err != nil {
		return err
	}
	data, err := bytecode.Marshal(tmpl.Program())
	if err != nil {
		return fmt.Errorf("serialization error: %w", err)
	}

	outputPath := opts.output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + CompiledFileExt
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("writing bytecode file: %w", err)
	}
	fmt.Fprintf(a.Stdout, "Compiled %s -> %s (%d bytes)\n", sourcePath, outputPath, len(data))
	return nil
}

// handleRunCompiled renders a file written by handleCompile.
func (a *App) handleRunCompiled(args []string) error {
	var opts options
	fs := a.flags("run", &opts)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := opts.setup(); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("run takes exactly one %s file", CompiledFileExt)
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("reading bytecode file: %w", err)
	}
	prog, err := bytecode.Unmarshal(raw)
	if err != nil {
		return err
	}
	data, err := a.data(opts.dataPath)
	if err != nil {
		return err
	}
	mode, err := render.ParseMode(opts.cfg.Mode)
	if err != nil {
		return err
	}

	machine := vm.New(prog)
	machine.SetMaxSteps(opts.cfg.MaxSteps)
	ctx := render.New(render.Options{Globals: render.Map(data), Mode: mode})
	return machine.Run(ctx, a.Stdout)
}
