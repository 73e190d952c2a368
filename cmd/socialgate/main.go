package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/socialgate/internal/account"
	"github.com/dropDatabas3/socialgate/internal/config"
	"github.com/dropDatabas3/socialgate/internal/http/router"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/provider"
	"github.com/dropDatabas3/socialgate/internal/storage"

	// CRITICAL: los providers se registran vía init()
	_ "github.com/dropDatabas3/socialgate/internal/provider/linkedin"
)

// version se inyecta en build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "socialgate",
		Short:         "Gateway multi-tenant para publicar en redes sociales vía OAuth2",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "./config.yaml", "ruta del config.yaml")

	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newRotateCmd(&cfgPath))
	root.AddCommand(newAccountsListCmd(&cfgPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})
	return root
}

// setup carga .env + YAML e inicializa el logger. Común a todos los comandos.
func setup(cfgPath string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}

	// secretbox lee la master key del env; el YAML es sólo otra forma de
	// proveerla, nunca la pisa si ya está seteada.
	if cfg.Security.SecretBoxMasterKey != "" && os.Getenv("SECRETBOX_MASTER_KEY") == "" {
		_ = os.Setenv("SECRETBOX_MASTER_KEY", cfg.Security.SecretBoxMasterKey)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "socialgate",
		Version:     version,
	})
	return cfg, nil
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	deps := provider.Deps{
		Accounts:   stores.Accounts,
		Sessions:   stores.Sessions,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout()},
	}

	handler, mounted := router.New(router.Options{
		Deps:  deps,
		Pings: stores.Pings,
	})

	log := logger.L()
	log.Info("socialgate starting",
		logger.String("addr", cfg.Server.Addr),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("platforms", strings.Join(mounted, ",")),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

func newRotateCmd(cfgPath *string) *cobra.Command {
	var current, next string

	cmd := &cobra.Command{
		Use:   "token:rotate",
		Short: "Rota el secret token de una cuenta",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			if current == "" || next == "" {
				return fmt.Errorf("se requieren --current y --new")
			}

			ctx := context.Background()
			stores, err := storage.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			rot, err := stores.Accounts.RotateToken(ctx, current, next)
			if err != nil {
				return fmt.Errorf("rotation failed: %w", err)
			}
			fmt.Printf("ok: account %s (%s)\n", rot.AccountName, rot.AccountID)
			return nil
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "token actual")
	cmd.Flags().StringVar(&next, "new", "", "token nuevo")
	return cmd
}

func newAccountsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts:list",
		Short: "Lista cuentas configuradas (nunca imprime tokens)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*cfgPath)
			if err != nil {
				return err
			}

			ctx := context.Background()
			stores, err := storage.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			lister, ok := stores.Accounts.(account.Lister)
			if !ok {
				return fmt.Errorf("el backend %s no soporta listado", cfg.Storage.Driver)
			}
			accounts, err := lister.List(ctx)
			if err != nil {
				return err
			}
			for _, a := range accounts {
				fmt.Printf("%-24s %s\n", a.Name, a.ID)
			}
			return nil
		},
	}
}
