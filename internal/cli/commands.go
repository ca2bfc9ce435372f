package cli

import (
	"embed"
	"fmt"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kam-pm/kam/internal/version"
	"github.com/kam-pm/kam/pkg/cache"
	"github.com/kam-pm/kam/pkg/cobrax/topics"
	"github.com/kam-pm/kam/pkg/config"
	"github.com/kam-pm/kam/pkg/errors"
	"github.com/kam-pm/kam/pkg/fetch"
	"github.com/kam-pm/kam/pkg/filesystem"
	"github.com/kam-pm/kam/pkg/logging"
	"github.com/kam-pm/kam/pkg/manifest"
	"github.com/kam-pm/kam/pkg/resolver"
	"github.com/kam-pm/kam/pkg/shell"
	"github.com/kam-pm/kam/pkg/sync"
	"github.com/kam-pm/kam/pkg/venv"
)

//go:embed topics/*.md
var topicFiles embed.FS

// DefaultEnvDir is where sync and get link modules unless --env says
// otherwise.
const DefaultEnvDir = "kamenv"

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var (
		verbosity int
		force     bool
	)

	rootCmd := &cobra.Command{
		Use:     "kam",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, MsgFlagForce)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSyncCmd(&force))
	rootCmd.AddCommand(newGetCmd(&force))
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newEnvCmd(&force))
	rootCmd.AddCommand(newSnippetCmd())

	// Topic-based help from the embedded markdown files.
	_ = topics.Install(rootCmd, topicFiles, topics.Options{
		Renderer: topics.NewGlamourRenderer(),
	})

	return rootCmd
}

// bootstrap loads the configuration and readies the cache. Every
// command that touches modules goes through here.
func bootstrap() (*cache.Cache, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	c, err := cache.New("", filesystem.NewOS())
	if err != nil {
		return nil, nil, err
	}
	if err := c.EnsureDirs(); err != nil {
		return nil, nil, err
	}

	return c, cfg, nil
}

// loadProjectManifest finds and parses the manifest in the working
// directory.
func loadProjectManifest() (*manifest.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot determine working directory")
	}

	path, err := manifest.Find(cwd)
	if err != nil {
		return nil, err
	}
	return manifest.Load(path)
}

// openEnv loads the environment at dir, creating a development one if
// none exists yet.
func openEnv(dir string, c *cache.Cache) (*venv.Venv, error) {
	env, err := venv.Load(dir, nil)
	if err == nil {
		return env, nil
	}
	if !errors.IsErrorCode(err, errors.ErrVenvNotFound) {
		return nil, err
	}
	return venv.Create(dir, venv.Development, c, nil)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kam version %s\n", version.Version)
			fmt.Printf("  commit: %s\n", version.Commit)
			fmt.Printf("  built:  %s\n", version.Date)
		},
	}
}

func newSyncCmd(force *bool) *cobra.Command {
	var (
		dev    bool
		envDir string
	)

	cmd := &cobra.Command{
		Use:   "sync [group...]",
		Short: MsgSyncShort,
		Long:  MsgSyncLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := bootstrap()
			if err != nil {
				return err
			}

			m, err := loadProjectManifest()
			if err != nil {
				return err
			}

			var env *venv.Venv
			if dev {
				if env, err = openEnv(envDir, c); err != nil {
					return err
				}
			}

			o := sync.New(m, fetch.New(c, cfg))
			report, err := o.Run(sync.Options{Groups: args, Force: *force, Env: env})
			if report != nil {
				printSyncReport(report)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dev, "dev", false, MsgFlagDev)
	cmd.Flags().StringVar(&envDir, "env", DefaultEnvDir, MsgFlagEnvDir)

	return cmd
}

func printSyncReport(report *sync.Report) {
	for _, group := range report.Groups {
		fmt.Println(bold(group.Name))
		for _, dep := range group.Deps {
			switch {
			case dep.Err != nil:
				fmt.Printf("  %s: %v\n", dep.ID, dep.Err)
			case dep.Fetched:
				fmt.Printf("  %s %s\n", success(dep.ID+"-"+dep.Version), dim("("+dep.Origin+")"))
			default:
				fmt.Printf("  %s %s\n", dep.ID+"-"+dep.Version, dim("(cached)"))
			}
		}
	}
	fmt.Printf(MsgSyncSummary, report.Fetched, report.Cached, report.Linked)
}

func newGetCmd(force *bool) *cobra.Command {
	var (
		source string
		link   bool
		envDir string
	)

	cmd := &cobra.Command{
		Use:   "get <id>[@version]",
		Short: MsgGetShort,
		Long:  MsgGetLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := bootstrap()
			if err != nil {
				return err
			}

			dep := manifest.ParseEntry(args[0]).Dep
			f := fetch.New(c, cfg)
			opts := fetch.Options{Override: source, Force: *force}

			result, err := f.Ensure(dep, opts)
			if err != nil && errors.IsErrorCode(err, errors.ErrModuleNotFound) && dep.Version == "" {
				// An unpinned module that exists nowhere yet. Ask for a
				// version; refuse when prompting is off the table.
				dep.Version, err = promptVersion(dep.ID, cfg)
				if err != nil {
					return err
				}
				result, err = f.Ensure(dep, opts)
			}
			if err != nil {
				return err
			}

			if result.Fetched {
				fmt.Printf("%s %s\n", success(result.ID+"-"+result.Version), dim("("+result.Origin+")"))
			} else {
				fmt.Printf("%s %s\n", result.ID+"-"+result.Version, dim("(cached)"))
			}

			if link {
				env, err := openEnv(envDir, c)
				if err != nil {
					return err
				}
				if err := env.LinkLibrary(result.ID, result.Version, c); err != nil {
					return err
				}
				fmt.Printf("linked into %s\n", env.LibDir())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", MsgFlagSource)
	cmd.Flags().BoolVar(&link, "link", false, MsgFlagLink)
	cmd.Flags().StringVar(&envDir, "env", DefaultEnvDir, MsgFlagEnvDir)

	return cmd
}

// promptVersion asks the user for an explicit version, or fails fast
// when running non-interactively.
func promptVersion(id string, cfg *config.Config) (string, error) {
	if cfg.UI.NonInteractive || !stdoutIsTerminal() {
		return "", errors.Newf(errors.ErrNonInteractive,
			"module '%s' needs an explicit version and prompting is disabled", id)
	}

	answer, err := pterm.DefaultInteractiveTextInput.Show(fmt.Sprintf(MsgPromptVersion, id))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInvalidInput, "version prompt failed")
	}
	if answer == "" {
		return "", errors.Newf(errors.ErrInvalidInput, "no version given for '%s'", id)
	}
	return answer, nil
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [group...]",
		Short: MsgResolveShort,
		Long:  MsgResolveLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadProjectManifest()
			if err != nil {
				return err
			}

			r := resolver.New(m.Groups)
			resolved, err := r.Resolve()
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = make([]string, 0, len(resolved))
				for name := range resolved {
					names = append(names, name)
				}
				sort.Strings(names)
			}

			for _, name := range names {
				group, ok := resolved[name]
				if !ok {
					return errors.Newf(errors.ErrGroupNotFound, "group '%s' is not defined", name)
				}
				fmt.Println(bold(name))
				for _, dep := range group.Deps {
					fmt.Printf("  %s\n", dep.String())
				}
			}
			return nil
		},
	}
}

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: MsgCacheShort,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: MsgCacheStatsShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := bootstrap()
			if err != nil {
				return err
			}

			stats, err := c.Stats()
			if err != nil {
				return err
			}

			fmt.Printf("%s %s\n", bold("root:"), c.Root())
			fmt.Printf("%s %d\n", bold("files:"), stats.FileCount)
			fmt.Printf("%s %d bytes\n", bold("size:"), stats.TotalBytes)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear [subdir]",
		Short: MsgCacheClearShort,
		Long:  MsgCacheClearLong,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cache.New("", filesystem.NewOS())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				if err := c.ClearSubdir(args[0]); err != nil {
					return err
				}
				fmt.Printf("cleared %s\n", args[0])
				return nil
			}

			if err := c.ClearAll(); err != nil {
				return err
			}
			fmt.Printf("cleared %s\n", c.Root())
			return nil
		},
	}

	cacheCmd.AddCommand(statsCmd)
	cacheCmd.AddCommand(clearCmd)
	return cacheCmd
}

func newSnippetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snippet",
		Short: MsgSnippetShort,
		Long:  MsgSnippetLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := bootstrap()
			if err != nil {
				return err
			}

			if _, err := shell.Install(c, nil); err != nil {
				return err
			}

			fmt.Println(dim("# add this line to your shell profile:"))
			fmt.Println(shell.SourceLine(c))
			return nil
		},
	}
}

func newEnvCmd(force *bool) *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: MsgEnvShort,
	}

	var runtime bool
	createCmd := &cobra.Command{
		Use:   "create [dir]",
		Short: MsgEnvCreateShort,
		Long:  MsgEnvCreateLong,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := DefaultEnvDir
			if len(args) == 1 {
				dir = args[0]
			}

			c, _, err := bootstrap()
			if err != nil {
				return err
			}

			typ := venv.Development
			if runtime {
				typ = venv.Runtime
			}

			var env *venv.Venv
			if _, statErr := os.Stat(dir); statErr == nil {
				if !*force {
					return errors.Newf(errors.ErrInvalidInput,
						"environment %s already exists, use --force to recreate", dir)
				}
				env, err = venv.Recreate(dir, typ, c, nil)
			} else {
				env, err = venv.Create(dir, typ, c, nil)
			}
			if err != nil {
				return err
			}

			fmt.Printf("%s %s environment at %s\n", success("created"), env.Type(), env.Root())
			return nil
		},
	}
	createCmd.Flags().BoolVar(&runtime, "runtime", false, MsgFlagRuntime)

	infoCmd := &cobra.Command{
		Use:   "info [dir]",
		Short: MsgEnvInfoShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := DefaultEnvDir
			if len(args) == 1 {
				dir = args[0]
			}

			env, err := venv.Load(dir, nil)
			if err != nil {
				return err
			}

			fmt.Printf("%s %s\n", bold("root:"), env.Root())
			fmt.Printf("%s %s\n", bold("type:"), env.Type())
			fmt.Printf("%s %s\n", bold("bin:"), env.BinDir())
			fmt.Printf("%s %s\n", bold("lib:"), env.LibDir())
			return nil
		},
	}

	envCmd.AddCommand(createCmd)
	envCmd.AddCommand(infoCmd)
	return envCmd
}
