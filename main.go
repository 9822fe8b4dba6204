package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jgxilos/wdd231/internal/config"
	"github.com/jgxilos/wdd231/internal/directory"
	"github.com/jgxilos/wdd231/internal/join"
	"github.com/jgxilos/wdd231/internal/logging"
	"github.com/jgxilos/wdd231/internal/notify"
	"github.com/jgxilos/wdd231/internal/pagegen"
	"github.com/jgxilos/wdd231/internal/prefs"
	"github.com/jgxilos/wdd231/internal/s3deploy"
	"github.com/jgxilos/wdd231/internal/server"
	"github.com/jgxilos/wdd231/internal/watch"
	"github.com/jgxilos/wdd231/internal/weather"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chamber",
	Short: "Builds, serves and deploys the chamber of commerce website",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Development, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Writes the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists", configPath)
		}
		if err := config.DefaultConfig().Save(configPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", configPath)
		return nil
	},
}

var buildWatch bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generates the static site",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runBuild(ctx); err != nil {
			return err
		}
		if !buildWatch {
			return nil
		}

		dirs := []string{
			cfg.SourcePath(cfg.Site.TemplatesDir),
			cfg.SourcePath("static"),
			cfg.SourcePath("assets"),
			cfg.SourcePath("data"),
			cfg.SourcePath(cfg.Site.LevelsDir),
		}
		w := watch.New(dirs, runBuild, logger, watch.WithIgnore(cfg.Site.OutputDir))
		return w.Run(ctx)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the site with per-visitor preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		site, err := newSite()
		if err != nil {
			return err
		}

		var scopes server.Scoper = prefs.NewMemoryScopes()
		if cfg.Prefs.Path != "" {
			db, err := prefs.OpenSQLite(cfg.Prefs.Path, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			scopes = db
		}

		srv, err := server.New(server.Options{
			Addr:          cfg.Server.Addr,
			Site:          site,
			Prefs:         scopes,
			Sender:        notify.New(cfg.Notify.ResendAPIKey, cfg.Notify.From, logger),
			OfficeEmail:   cfg.Notify.OfficeEmail,
			CSRFKey:       []byte(cfg.Server.CSRFKey),
			SecureCookies: cfg.Server.SecureCookies,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Serving on %s\n", cfg.Server.Addr)
		return srv.Run(ctx)
	},
}

var (
	deployBucket     string
	deployCloudFront bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Builds the site and deploys it to an S3 bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bucket := deployBucket
		if bucket == "" {
			bucket = cfg.Deploy.Bucket
		}
		if bucket == "" {
			return fmt.Errorf("S3 bucket name is required for deploy command. Use --bucket <bucket-name>")
		}

		if err := runBuild(ctx); err != nil {
			return err
		}

		deployer, err := s3deploy.New(ctx, logger)
		if err != nil {
			return err
		}
		if err := deployer.DeploySite(ctx, bucket, cfg.Site.OutputDir); err != nil {
			return err
		}

		if !deployCloudFront && !cfg.Deploy.CloudFront {
			return nil
		}
		fmt.Println("Creating CloudFront distribution...")
		distID, err := deployer.CreateCloudFrontDistribution(ctx, bucket)
		if err != nil {
			return err
		}
		fmt.Printf("CloudFront distribution created/found with ID: %s\n", distID)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the site configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "rebuild when sources change")

	deployCmd.Flags().StringVar(&deployBucket, "bucket", "", "S3 bucket name to deploy to")
	deployCmd.Flags().BoolVar(&deployCloudFront, "cloudfront", false, "create or reuse a CloudFront distribution for the bucket")

	rootCmd.AddCommand(initCmd, buildCmd, serveCmd, deployCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBuild(ctx context.Context) error {
	fmt.Println("Starting static site generation...")
	site, err := newSite()
	if err != nil {
		return err
	}
	if err := site.Build(ctx, cfg.Site.OutputDir); err != nil {
		return err
	}
	fmt.Println("Static site generation complete!")
	return nil
}

// newSite wires the data sources named by the configuration.
func newSite() (*pagegen.Site, error) {
	client := directory.LocalClient(cfg.Site.SourceDir)
	baseURL := "file:///"
	if cfg.Data.BaseURL != "" {
		client = &http.Client{}
		baseURL = cfg.Data.BaseURL
	}
	client.Timeout = cfg.DataTimeout()
	loader, err := directory.NewLoader(client, baseURL, logger)
	if err != nil {
		return nil, err
	}

	var wx weather.Client
	if cfg.Weather.APIKey != "" {
		wx = weather.NewOpenWeatherClient(weather.Options{
			APIKey:    cfg.Weather.APIKey,
			Latitude:  cfg.Weather.Latitude,
			Longitude: cfg.Weather.Longitude,
			BaseURL:   cfg.Weather.BaseURL,
			Logger:    logger,
		})
	} else {
		logger.Warn("weather API key not set, weather widget will show its error state")
	}

	levels, err := join.LoadLevels(os.DirFS(cfg.SourcePath(cfg.Site.LevelsDir)))
	if err != nil {
		return nil, err
	}

	mode, err := directory.ParseMode(cfg.Directory.DefaultView)
	if err != nil {
		return nil, err
	}

	return &pagegen.Site{
		Generator:      pagegen.NewGenerator(cfg.SourcePath(cfg.Site.TemplatesDir), cfg.Site.Title, logger),
		SourceDir:      cfg.Site.SourceDir,
		Logo:           cfg.SourcePath(cfg.Site.Logo),
		Stylesheet:     cfg.SourcePath(cfg.Site.Stylesheet),
		Members:        loader,
		Data:           loader,
		Weather:        wx,
		Levels:         levels,
		SpotlightCount: cfg.Spotlight.Count,
		DefaultView:    mode,
		Logger:         logger.Named("site"),
	}, nil
}
