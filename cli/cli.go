package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/botscript/cli/cmd"
	"github.com/ardnew/botscript/pkg"
)

// CLI is the top-level command-line interface for botscript.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit." short:"V"`
	Path    []string         `help:"Directories searched for scripts before those in ${envPath}." placeholder:"DIR" short:"I" type:"path"`

	Run    cmd.Run    `cmd:"" help:"Compile a script and call one of its functions."`
	Check  cmd.Check  `cmd:"" help:"Compile scripts and report errors."`
	Tokens cmd.Tokens `cmd:"" help:"Print the token stream of a script."`
	AST    cmd.AST    `cmd:"" help:"Print the syntax tree of a script." name:"ast"`
	Repl   cmd.Repl   `cmd:"" help:"Evaluate expressions interactively against a script."`
	Init   cmd.Init   `cmd:"" help:"Write the configuration file with current flag values."`
}

// Run executes the botscript CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	configFile := pkg.ConfigFile()

	vars := kong.Vars{
		"version":            pkg.Name + " " + pkg.Version(),
		"envPath":            pkg.EnvPath,
		cmd.ConfigIdentifier: configFile,
		cmd.CacheIdentifier:  pkg.CacheDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Configure the logger before kong reports anything.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		// The provider runs when a command is invoked, after ctx has been
		// extended with the values below.
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(resolve, configFile),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithSearchPath(ctx, pkg.SearchPath(cli.Path...))

	defer cli.Pprof.start(ctx)()

	cli.Log.start(ctx)

	return ktx.Run()
}
