// Command vaultd is the file storage server. It wires config, logging,
// telemetry, the storage and metadata backends, the session manager, and
// the idle-session/janitor sweepers together behind a cobra root command,
// grounded on the teacher's cmd/dittofs/commands/start.go.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cloudvault/vaultd/internal/auth"
	"github.com/cloudvault/vaultd/internal/command"
	"github.com/cloudvault/vaultd/internal/config"
	"github.com/cloudvault/vaultd/internal/controlapi"
	"github.com/cloudvault/vaultd/internal/handlers"
	"github.com/cloudvault/vaultd/internal/logger"
	"github.com/cloudvault/vaultd/internal/metrics"
	"github.com/cloudvault/vaultd/internal/server"
	"github.com/cloudvault/vaultd/internal/session"
	"github.com/cloudvault/vaultd/internal/storage"
	"github.com/cloudvault/vaultd/internal/storage/localfs"
	"github.com/cloudvault/vaultd/internal/storage/s3backend"
	"github.com/cloudvault/vaultd/internal/store/identity"
	"github.com/cloudvault/vaultd/internal/store/metadata"
	"github.com/cloudvault/vaultd/internal/store/metadata/badgerstore"
	"github.com/cloudvault/vaultd/internal/store/metadata/memstore"
	"github.com/cloudvault/vaultd/internal/store/metadata/sqlstore"
	"github.com/cloudvault/vaultd/internal/telemetry"
)

// version is stamped at build time; left as "dev" for local builds.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var portFlag int

	root := &cobra.Command{
		Use:   "vaultd",
		Short: "vaultd is a self-hosted cloud file storage server",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: "+config.DefaultConfigPath()+")")

	serve := &cobra.Command{
		Use:   "serve [port]",
		Short: "Run the server in the foreground",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port := portFlag
			if len(args) == 1 {
				p, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid port %q: %w", args[0], err)
				}
				port = p
			}
			return runServe(configPath, port)
		},
	}
	serve.Flags().IntVar(&portFlag, "port", 0, "TCP port to listen on (overrides config)")
	root.AddCommand(serve)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	})

	root.AddCommand(configSchemaCmd())

	return root
}

func runServe(configPath string, portFlag int) error {
	cfg, err := config.Load(configPath, portFlag)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "vaultd",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	storageBackend, err := buildStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("build storage backend: %w", err)
	}

	files, dirs, list, err := buildMetadata(cfg.Metadata)
	if err != nil {
		return fmt.Errorf("build metadata backend: %w", err)
	}

	users := identity.NewMemStore()
	if err := ensureTestAdmin(ctx, users); err != nil {
		logger.Warn("could not seed admin user", "error", err)
	}

	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)

	chunkSize := handlers.NewChunkSize(int(cfg.ChunkSize.Uint64()))

	registry := command.NewRegistry()
	handlers.Register(registry, handlers.Deps{
		Users:     users,
		Files:     files,
		Dirs:      dirs,
		Storage:   storageBackend,
		ChunkSize: chunkSize,
	})

	mgr := session.NewManager(registry, cfg.MaxConcurrentClients, cfg.SessionTimeout)
	mgr.SetMetrics(m)
	if cfg.ExperimentalChunkEncryption {
		logger.Warn("experimental chunk payload codec enabled: this is not a security boundary")
		mgr.EnableExperimentalChunkCodec()
	}

	janitor := session.NewJanitor(files, storageBackend, cfg.SessionTimeout, list)

	srv := server.New(cfg.Port, mgr)

	var adminSrv *controlapi.Server
	if cfg.Admin.Enabled {
		var metricsHandler http.Handler
		if promReg, ok := reg.(*prometheus.Registry); ok {
			metricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
		}
		adminSrv, err = controlapi.NewServer(controlapi.Config{
			Port:      cfg.Admin.Port,
			JWTSecret: adminSecret(cfg.Admin.JWTSecret),
			Registry:  metricsHandler,
		}, users, mgr)
		if err != nil {
			return fmt.Errorf("build controlapi server: %w", err)
		}
	}

	if resolved := config.ResolvedConfigFile(configPath); resolved != "" {
		stopWatch, err := config.Watch(resolved, portFlag, func(newCfg *config.Config) {
			mgr.SetIdleTimeout(newCfg.SessionTimeout)
			chunkSize.Set(int(newCfg.ChunkSize.Uint64()))
			logger.SetLevel(newCfg.Logging.Level)
		})
		if err != nil {
			logger.Warn("config: could not start file watcher, hot-reload disabled", "error", err)
		} else {
			defer stopWatch()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { mgr.RunIdleSweeper(gctx, cfg.SessionTimeout/2); return nil })
	g.Go(func() error { janitor.Run(gctx, cfg.SessionTimeout); return nil })
	g.Go(func() error { return srv.Serve(gctx) })
	if adminSrv != nil {
		g.Go(func() error { return adminSrv.Serve(gctx) })
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case sig := <-sigCh:
			signal.Stop(sigCh)
			logger.Info("shutdown signal received", "signal", sig.String())
			mgr.Broadcast("server shutting down")
			cancel()
			return nil
		}
	})

	logger.Info("vaultd listening", "port", cfg.Port, "chunk_size", cfg.ChunkSize.String())
	if cfg.Admin.Enabled {
		logger.Info("controlapi listening", "port", cfg.Admin.Port)
	}

	return g.Wait()
}

// adminSecret falls back to a fixed development secret when none is
// configured, so `vaultd serve` with zero config still brings up the
// control plane; production deployments should always set Admin.JWTSecret.
func adminSecret(configured string) string {
	if len(configured) >= 32 {
		return configured
	}
	logger.Warn("controlapi: no (or too short) jwt_secret configured, using an insecure development secret")
	return "vaultd-development-only-secret-do-not-use-in-prod"
}

func buildStorage(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "localfs", "":
		return localfs.New(cfg.Root)
	case "s3":
		return s3backend.New(ctx, s3backend.Config{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Prefix:   cfg.S3.Prefix,
			Endpoint: cfg.S3.Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func buildMetadata(cfg config.MetadataConfig) (metadata.FileStore, metadata.DirectoryStore, func(context.Context) ([]metadata.FileMetadata, error), error) {
	switch cfg.Backend {
	case "memory", "":
		store := memstore.New()
		return store, store, store.ListAll, nil
	case "sql":
		store, err := sqlstore.Open(cfg.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, store.ListAll, nil
	case "badger":
		store, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, store.ListAll, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown metadata backend %q", cfg.Backend)
	}
}

// ensureTestAdmin seeds a default admin account on first run, mirroring the
// teacher's EnsureAdminUser convenience for local/demo deployments. It is a
// no-op once a user named "admin" exists.
func ensureTestAdmin(ctx context.Context, users *identity.MemStore) error {
	if _, err := users.GetByUsername(ctx, "admin"); err == nil {
		return nil
	}
	v, err := auth.HashPassword("change-me-immediately")
	if err != nil {
		return err
	}
	_, err = users.CreateUser(ctx, "admin", "admin@localhost", identity.RoleAdmin, identity.PasswordVerifier{Salt: v.Salt, Hash: v.Hash})
	return err
}
