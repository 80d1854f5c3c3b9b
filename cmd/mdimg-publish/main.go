package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/altafino/mdimg-publish/internal/app"
	"github.com/altafino/mdimg-publish/internal/config"
	"github.com/altafino/mdimg-publish/internal/logger"
	"github.com/altafino/mdimg-publish/internal/publish"
	"github.com/altafino/mdimg-publish/internal/types"
	"github.com/altafino/mdimg-publish/internal/uploader"
)

var (
	cfgDir    string
	configID  string
	logLevel  string
	logFormat string
	vaultRoot string
	toStdout  bool
	quiet     bool
	historyOf string
	log       *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mdimg-publish",
	Short: "Publish markdown documents with their local images uploaded",
	Long: `Uploads the local and web images referenced by a markdown document to a remote
image store and produces a copy of the document that links the uploaded URLs.`,
	SilenceUsage: true,
}

var publishCmd = &cobra.Command{
	Use:   "publish <document>",
	Short: "Upload a document's images and export the rewritten document",
	Args:  cobra.ExactArgs(1),
	RunE:  runPublish,
}

var watchCmd = &cobra.Command{
	Use:   "watch <document>",
	Short: "Republish a document whenever it or the configuration changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the scheduled republish jobs of the enabled profiles",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the available storage backends",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, d := range uploader.List() {
			fmt.Fprintf(w, "%s\t%s\n", d.ID, d.Description)
		}
		w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List uploaded images recorded in the ledger",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	// Setup default logger until we load config
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config-dir", "./config", "config directory")
	rootCmd.PersistentFlags().StringVar(&configID, "config-id", "", "profile ID to use (default: the single enabled profile)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging format (text, json, dev)")
	rootCmd.PersistentFlags().StringVar(&vaultRoot, "vault", ".", "vault root directory")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress notices")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	for _, cmd := range []*cobra.Command{publishCmd, watchCmd} {
		f := cmd.Flags()
		f.BoolVar(&toStdout, "stdout", false, "write the published document to stdout instead of the clipboard")
		f.Bool("replace", false, "also rewrite the document in place")
		f.Bool("strip-front-matter", false, "drop the front matter from the export")
		f.Bool("alt-from-filename", false, "derive alt text from the image file name")
		f.Bool("allow-remote", false, "re-upload web images")
		f.Bool("progress", true, "print per-image progress")
	}
	historyCmd.Flags().StringVar(&historyOf, "document", "", "only list uploads of this document")

	rootCmd.AddCommand(publishCmd, watchCmd, scheduleCmd, backendsCmd, historyCmd)
}

// bindPublishFlags binds the running command's flags; publish and watch share keys
func bindPublishFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	viper.BindPFlag("publish.replace_original", f.Lookup("replace"))
	viper.BindPFlag("publish.strip_front_matter", f.Lookup("strip-front-matter"))
	viper.BindPFlag("publish.alt_from_filename", f.Lookup("alt-from-filename"))
	viper.BindPFlag("publish.allow_remote_upload", f.Lookup("allow-remote"))
	viper.BindPFlag("publish.show_progress", f.Lookup("progress"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to load .env file", "error", err)
	}

	config.InitLogger(log)
	if err := config.LoadConfigs(cfgDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configs: %v\n", err)
		os.Exit(1)
	}

	configs := config.ListConfigs()
	log.Debug("loaded configurations",
		"count", len(configs),
		"enabled", len(config.GetEnabledConfigs()),
	)
}

// applyOverrides copies flags the user actually set onto a profile
func applyOverrides(cfg *types.Config) {
	if viper.IsSet("logging.level") {
		cfg.Logging.Level = viper.GetString("logging.level")
	}
	if viper.IsSet("logging.format") {
		cfg.Logging.Format = viper.GetString("logging.format")
	}
	if viper.IsSet("publish.replace_original") {
		cfg.Publish.ReplaceOriginal = viper.GetBool("publish.replace_original")
	}
	if viper.IsSet("publish.strip_front_matter") {
		cfg.Publish.StripFrontMatter = viper.GetBool("publish.strip_front_matter")
	}
	if viper.IsSet("publish.alt_from_filename") {
		cfg.Publish.AltFromFilename = viper.GetBool("publish.alt_from_filename")
	}
	if viper.IsSet("publish.allow_remote_upload") {
		cfg.Publish.AllowRemoteUpload = viper.GetBool("publish.allow_remote_upload")
	}
	if viper.IsSet("publish.show_progress") {
		show := viper.GetBool("publish.show_progress")
		cfg.Publish.ShowProgress = &show
	}
}

// selectProfile picks the profile and switches to its logger
func selectProfile() (*types.Config, error) {
	selected, err := config.SelectConfig(configID)
	if err != nil {
		return nil, err
	}
	cfg := *selected
	applyOverrides(&cfg)

	log = logger.Setup(&cfg)
	slog.SetDefault(log)
	config.InitLogger(log)
	return &cfg, nil
}

func env(cmd *cobra.Command) app.Env {
	e := app.Env{
		VaultRoot: vaultRoot,
		Console:   cmd.ErrOrStderr(),
		Quiet:     quiet,
	}
	if toStdout {
		e.Export = cmd.OutOrStdout()
	}
	return e
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPublish(cmd *cobra.Command, args []string) error {
	bindPublishFlags(cmd)
	cfg, err := selectProfile()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	session, err := app.NewSession(ctx, cfg, env(cmd), log)
	if err != nil {
		return fmt.Errorf("failed to prepare publish: %w", err)
	}
	defer session.Close()

	_, err = session.Publish(ctx, args[0])
	if publish.IsSoft(err) {
		return nil
	}
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	bindPublishFlags(cmd)
	if _, err := selectProfile(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a := app.New(log, cfgDir, configID, env(cmd))
	a.Override = applyOverrides
	log.Info("watching document", "document", args[0])
	return a.Watch(ctx, vaultRoot, args[0])
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if _, err := selectProfile(); err != nil && configID != "" {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	e := env(cmd)
	e.Export = io.Discard
	a := app.New(log, cfgDir, configID, e)
	a.Override = applyOverrides
	log.Info("starting scheduler")
	return a.Schedule(ctx)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := selectProfile()
	if err != nil {
		return err
	}

	session, err := app.NewSession(context.Background(), cfg, app.Env{
		VaultRoot: vaultRoot,
		Console:   io.Discard,
	}, log)
	if err != nil {
		return err
	}
	defer session.Close()

	records, err := session.History(historyOf)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UPLOADED\tDOCUMENT\tLOCATION\tURL\tSPELLINGS")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.UploadedAt.Format("2006-01-02 15:04"), r.Document, r.Location, r.RemoteURL, strings.Join(r.Tokens, " "))
	}
	return w.Flush()
}
