// Package main provides the entry point for the aloud CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/ctrlc"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/aloud/internal/cache"
	"github.com/dgnsrekt/aloud/internal/content"
	"github.com/dgnsrekt/aloud/internal/speech"
	"github.com/dgnsrekt/aloud/internal/ui"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// maxSpeed bounds --speed; every backend clamps or saturates well below it.
const maxSpeed = 10.0

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile  string
	urlFlag     string
	fileFlag    string
	clipboard   bool
	listVoices  bool
	voice       string
	speed       float64
	backendName string
	debug       bool

	errNoInput = errors.New("no input given")

	rootCmd = &cobra.Command{
		Use:   "aloud [TEXT]",
		Short: "Read text or websites aloud",
		Long: paragraph(
			fmt.Sprintf("\nRead text, files or websites %s with the speech engine your system already has.", keyword("aloud")),
		),
		Example: paragraph(`aloud "Hello there"
aloud --url https://example.com/article --speed 1.5
aloud --file notes.md --voice Samantha
echo "piped text" | aloud
aloud --list-voices`),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	// grab config values from Viper
	voice = viper.GetString("voice")
	speed = viper.GetFloat64("speed")
	backendName = viper.GetString("backend")
	debug = viper.GetBool("debug")

	if debug {
		if err := enableDebugLog(); err != nil {
			return err
		}
	}

	if speed <= 0 || speed > maxSpeed {
		return fmt.Errorf("speed must be greater than 0 and at most %g, got %g", maxSpeed, speed)
	}
	if _, err := forcedKind(backendName); err != nil {
		return err
	}
	return nil
}

// forcedKind parses the backend setting. auto, or an empty value, means
// probe as usual and yields nil.
func forcedKind(name string) (*speech.Kind, error) {
	if name == "" || name == speech.BackendAuto {
		return nil, nil
	}
	k, err := speech.ParseKind(name)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// newEngine builds an engine honoring the backend setting.
func newEngine() *speech.Engine {
	var opts []speech.Option
	if k, err := forcedKind(backendName); err == nil && k != nil {
		opts = append(opts, speech.WithKind(*k))
	}
	return speech.NewEngine(opts...)
}

// newFetcher builds the page fetcher from the fetch.* settings.
func newFetcher() *content.Fetcher {
	opts := []content.Option{
		content.WithTimeout(viper.GetDuration("fetch.timeout")),
		content.WithUserAgent(viper.GetString("fetch.user_agent")),
		content.WithRate(viper.GetFloat64("fetch.rate")),
	}
	if c := pageCache(); c != nil {
		opts = append(opts, content.WithCache(c))
	}
	return content.NewFetcher(opts...)
}

// pageCache opens the fetched-page cache, or returns nil when it is disabled
// or cannot be opened.
func pageCache() cache.Cache {
	if !viper.GetBool("cache.enabled") {
		return nil
	}
	cfg := cache.DefaultConfig()
	cfg.TTL = viper.GetDuration("cache.ttl")
	cfg.DiskPath = viper.GetString("cache.dir")
	if cfg.DiskPath == "" {
		dir, err := defaultCacheDir()
		if err != nil {
			log.Debug("Page cache disabled", "error", err)
			return nil
		}
		cfg.DiskPath = dir
	}
	c, err := cache.New(cfg)
	if err != nil {
		log.Warn("Page cache disabled", "error", err)
		return nil
	}
	return c
}

func defaultCacheDir() (string, error) {
	dir, err := gap.NewScope(gap.User, "aloud").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pages"), nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	engine := newEngine()

	if listVoices {
		return printVoices(commandContext(cmd), engine, cmd.OutOrStdout(), false)
	}

	text, err := readInput(cmd, args)
	if errors.Is(err, errNoInput) {
		return cmd.Help()
	}
	if err != nil {
		return err
	}

	engine.Configure(speech.Settings{Voice: voice, Speed: speed})
	return speak(commandContext(cmd), engine, text)
}

// readInput returns the text named by exactly one of the positional
// argument, --url, --file or --clipboard, falling back to piped stdin.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	given := 0
	for _, set := range []bool{len(args) > 0, urlFlag != "", fileFlag != "", clipboard} {
		if set {
			given++
		}
	}
	if given > 1 {
		return "", speech.InvalidInput("Only one of TEXT, --url, --file or --clipboard may be given.")
	}

	switch {
	case urlFlag != "":
		fmt.Fprintln(cmd.OutOrStdout(), "Fetching content from:", urlFlag)
		fetched := newFetcher().Fetch(commandContext(cmd), urlFlag, true)
		if content.IsFetchError(fetched) {
			return "", speech.InvalidInput("%s", fetched)
		}
		return fetched, nil
	case fileFlag != "":
		return content.ReadFile(fileFlag)
	case clipboard:
		return content.ReadClipboard()
	case len(args) == 1:
		return args[0], nil
	}

	// if stdin is a pipe then use stdin for input.
	if yes, err := stdinIsPipe(); err != nil {
		return "", err
	} else if yes {
		return content.ReadAll(os.Stdin)
	}
	return "", errNoInput
}

// commandContext returns the command's context, which is nil for a command
// that was never executed.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// speak reads text and waits for it to finish. On a terminal it shows the
// interactive view; otherwise Ctrl-C stops the speech and exits cleanly.
func speak(ctx context.Context, engine *speech.Engine, text string) error {
	if text == "" {
		log.Debug("Nothing to read")
		return nil
	}

	h, err := engine.Start(ctx, text)
	if err != nil {
		return err
	}

	if isInteractive() {
		return ui.Run(h, engine.Kind(), text, os.Stdout)
	}

	fmt.Println("Reading aloud... (Press Ctrl+C to stop)")
	if err := ctrlc.Default.Run(ctx, h.Wait); err != nil {
		if errors.As(err, &ctrlc.ErrorCtrlC{}) {
			log.Debug("Interrupted, stopping speech")
			return h.Stop()
		}
		return err
	}
	return nil
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringP("voice", "v", "", "name or ID of the voice to use")
	rootCmd.PersistentFlags().Float64P("speed", "s", speech.DefaultSpeed, "speed multiplier (e.g. 1.5 for 1.5x speed)")
	rootCmd.PersistentFlags().String("backend", speech.BackendAuto, "speech backend: auto, library, say, espeak or powershell")
	rootCmd.PersistentFlags().Bool("debug", false, "log debug output to stderr and the log file")
	rootCmd.Flags().StringVarP(&urlFlag, "url", "u", "", "URL to scrape and read")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "text or markdown file to read")
	rootCmd.Flags().BoolVarP(&clipboard, "clipboard", "c", false, "read the clipboard contents")
	rootCmd.Flags().BoolVar(&listVoices, "list-voices", false, "list available system voices and exit")
	rootCmd.MarkFlagsMutuallyExclusive("url", "file", "clipboard")

	// Config bindings
	_ = viper.BindPFlag("voice", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("speed", rootCmd.PersistentFlags().Lookup("speed"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetDefault("speed", speech.DefaultSpeed)
	viper.SetDefault("backend", speech.BackendAuto)
	viper.SetDefault("fetch.timeout", content.DefaultTimeout)
	viper.SetDefault("fetch.user_agent", content.DefaultUserAgent)
	viper.SetDefault("fetch.rate", content.DefaultRate)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", cache.DefaultConfig().TTL)
	viper.SetDefault("serve.addr", "127.0.0.1:8000")

	rootCmd.AddCommand(configCmd, manCmd, serveCmd, voicesCmd, doctorCmd, cacheCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "aloud")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "aloud")}, dirs...)
	}

	if c := os.Getenv("ALOUD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("aloud")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("aloud")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	configFile = filepath.Join(dirs[0], "aloud.yml")
}
