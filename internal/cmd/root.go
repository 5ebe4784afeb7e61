// Package cmd implements the distroclone command line interface.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rkent/distroclone/pkg/index"
	"github.com/rkent/distroclone/pkg/logging"
	"github.com/rkent/distroclone/pkg/manifest"
	"github.com/rkent/distroclone/pkg/reconcile"
	"github.com/rkent/distroclone/pkg/vcs"
)

var (
	distro     string
	outputPath string
	configFile string
	maxRepos   int
	indexURL   string
	verbose    bool
	quiet      bool
)

// rootCmd represents the base command. distroclone is a single-purpose
// tool, so the root command performs the reconciliation itself.
var rootCmd = &cobra.Command{
	Use:   "distroclone",
	Short: "Clone a full ROS distribution",
	Long: `distroclone reconciles a local directory tree against the repository
manifest of a ROS distribution index. It clones every repository the
manifest advertises, prunes working copies the manifest no longer names,
and backfills packages declared in release metadata but missing after
the primary clone pass into a reserved _release subtree.

A local override file can patch manifest entries before cloning, for
example to point a repository at a fork or a fix branch:

    launch_ros:
      source:
        type: git
        url: https://github.com/rkent/launch_ros.git
        version: fix-rosdoc2`,
	Example: `  distroclone
  distroclone --distro jazzy --path jazzy_repos
  distroclone -d rolling -c config.yaml
  distroclone -m 10  # bounded debug run`,
	SilenceUsage:     true,
	SilenceErrors:    true,
	PersistentPreRun: setupLogging,
	RunE:             runReconcile,
}

// Execute runs the root command with signal-aware cancellation. Any
// error is logged with its failing phase and the process exits non-zero.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	rootCmd.Flags().StringVarP(&distro, "distro", "d", "rolling", "distribution name to clone (use \"github\" to read github/distribution.yaml)")
	rootCmd.Flags().StringVarP(&outputPath, "path", "p", "rosdistro", "root output directory for cloned repositories")
	rootCmd.Flags().StringVarP(&configFile, "config-file", "c", "", "override file deep-merged into the manifest before cloning")
	rootCmd.Flags().IntVarP(&maxRepos, "max-repos", "m", -1, "maximum repositories to clone, -1 for no limit")
	rootCmd.Flags().StringVar(&indexURL, "index-url", "", "distribution index URL (default "+index.DefaultIndexURL+")")

	cobra.CheckErr(viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")))
	cobra.CheckErr(viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet")))
	cobra.CheckErr(viper.BindPFlag("index-url", rootCmd.Flags().Lookup("index-url")))
}

// initConfig loads a .env file if present and binds DISTROCLONE_*
// environment variables to flags.
func initConfig() {
	_ = godotenv.Load()

	viper.SetEnvPrefix("DISTROCLONE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setupLogging(_ *cobra.Command, _ []string) {
	switch {
	case viper.GetBool("verbose"):
		logging.SetLevel(zerolog.DebugLevel)
	case viper.GetBool("quiet"):
		logging.SetLevel(zerolog.WarnLevel)
	}
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	logger := logging.Default()

	var provider manifest.Provider
	if distro == "github" {
		provider = &index.Local{Path: filepath.Join("github", "distribution.yaml")}
	} else {
		provider = index.NewClient(
			index.WithIndexURL(viper.GetString("index-url")),
			index.WithLogger(logger),
		)
	}

	resolver := manifest.NewResolver(provider, logging.NewSink(logger))
	driver := reconcile.New(resolver,
		vcs.NewGitImporter(vcs.WithLogger(logger)),
		reconcile.WithLogger(logger))

	return driver.Reconcile(cmd.Context(), reconcile.Options{
		Distro:     distro,
		Path:       outputPath,
		ConfigFile: configFile,
		MaxRepos:   maxRepos,
	})
}
