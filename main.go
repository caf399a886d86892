// Package main provides the entry point for the audiotext CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/audiotext/audiotext/content"
	"github.com/audiotext/audiotext/library"
	"github.com/audiotext/audiotext/snapshot"
	"github.com/audiotext/audiotext/tts"
	"github.com/audiotext/audiotext/tts/engines"
	"github.com/audiotext/audiotext/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	engineName string
	modelPath  string
	speed      float64
	width      uint
	style      string
	mouse      bool
	noResume   bool

	keyword = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}).Render

	rootCmd = &cobra.Command{
		Use:   "audiotext [URL]",
		Short: "Listen to articles and posts from your terminal",
		Long: fmt.Sprintf(
			"\nTurn any link into %s: audiotext extracts the readable text and speaks it, with seeking, speed control, and a library that remembers where you left off.",
			keyword("spoken audio"),
		),
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

// expandPath resolves ~ in user-supplied paths.
func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

// validateStyle checks if the style is a default style, if not, checks
// that the custom style exists.
func validateStyle(style string) error {
	if style != "auto" && styles.DefaultStyles[style] == nil {
		style = expandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	engineName = viper.GetString("engine")
	modelPath = viper.GetString("piper.model")
	speed = viper.GetFloat64("speed")

	if speed != 0 && (speed < tts.MinSpeed || speed > tts.MaxSpeed) {
		return fmt.Errorf("speed must be between %.1f and %.1f, got %.2f", tts.MinSpeed, tts.MaxSpeed, speed)
	}
	if modelPath != "" {
		modelPath = expandPath(modelPath)
		if _, err := os.Stat(modelPath); os.IsNotExist(err) {
			return fmt.Errorf("piper model file does not exist: %s", modelPath)
		}
	}

	style = viper.GetString("style")
	if err := validateStyle(style); err != nil {
		return err
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width == 0 {
			width = uint(w) //nolint:gosec
		}
		if width > 120 {
			width = 120
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func execute(_ *cobra.Command, args []string) error {
	startURL := ""
	if len(args) == 1 {
		startURL = strings.TrimSpace(args[0])
	}
	return runTUI(startURL)
}

func runTUI(startURL string) error {
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	// use style set in env, or the validated flag value
	if err := validateStyle(cfg.GlamourStyle); err != nil {
		cfg.GlamourStyle = style
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = viper.GetString("api.url")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = viper.GetString("api.key")
	}
	if engineName != "" {
		cfg.Engine = engineName
	}
	if modelPath != "" {
		cfg.PiperModel = modelPath
	}
	cfg.Speed = speed
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	cfg.GlamourMaxWidth = width
	cfg.EnableMouse = mouse
	cfg.StartURL = startURL

	engine, err := engines.New(engines.Config{Name: cfg.Engine, PiperModel: cfg.PiperModel})
	if err != nil {
		return fmt.Errorf("unable to start speech engine: %w", err)
	}

	dbPath, err := library.DefaultDBPath()
	if err != nil {
		return fmt.Errorf("unable to locate data directory: %w", err)
	}
	store, err := library.OpenSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("unable to open library: %w", err)
	}
	defer store.Close() //nolint:errcheck

	extractor := content.NewService(cfg.APIBaseURL, cfg.APIKey, 0)
	player := tts.NewPlayer(tts.NewAdapter(engine), extractor, cfg.Speed)
	player.SetProgressReporter(store)
	defer player.Shutdown() //nolint:errcheck

	snapPath, err := snapshot.DefaultPath()
	if err == nil {
		snapStore := snapshot.NewFileStore(snapPath)
		player.SetSnapshotStore(snapStore)

		// Pick up where the last run left off.
		if startURL == "" && !noResume {
			if snap, err := snapStore.Load(); err == nil && snap != nil {
				player.Restore(snap)
			} else if err != nil {
				log.Debug("could not load previous session", "err", err)
			}
		}
	}

	// Persist the preferred speed for the next run.
	player.OnSpeedChange(func(s float64) {
		viper.Set("speed", s)
		if err := viper.WriteConfig(); err != nil {
			log.Debug("could not persist speed preference", "err", err)
		}
	})

	if _, err := ui.NewProgram(cfg, ui.Deps{Player: player, Library: store}).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
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
	rootCmd.Flags().StringVarP(&engineName, "engine", "e", "", "speech backend (piper/espeak/mock/auto)")
	rootCmd.Flags().StringVar(&modelPath, "model", "", "path to a piper ONNX voice model")
	rootCmd.Flags().Float64VarP(&speed, "speed", "x", 0, "playback speed multiplier (0.5-2.5)")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to auto-detect)")
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "style name or JSON path")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	rootCmd.Flags().BoolVar(&noResume, "no-resume", false, "do not restore the previous session")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("engine", rootCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("piper.model", rootCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("speed", rootCmd.Flags().Lookup("speed"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)
	viper.SetDefault("engine", "auto")
	viper.SetDefault("speed", 1.0)
	viper.SetDefault("api.url", "https://api.audiotext.app")

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "audiotext")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "audiotext")}, dirs...)
	}

	if c := os.Getenv("AUDIOTEXT_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("audiotext")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("audiotext")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "audiotext.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
