package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"presence_dao/internal/api"
	"presence_dao/internal/keeper"
	"presence_dao/internal/notify"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP node with the optional keeper and Redis feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		printHeader(cmd.OutOrStdout(), "daod "+version)
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	engine := newEngine(st)

	var pub notify.Publisher = notify.Nop{}
	if cfg.Redis.Enabled {
		rp, err := notify.NewRedisPublisher(ctx, notify.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, notify.Channel(engine.ProgramID()), logger)
		if err != nil {
			return err
		}
		pub = rp
	}
	defer pub.Close()

	if cfg.Keeper.Enabled {
		_, addr, err := loadKey("")
		if err != nil {
			return fmt.Errorf("keeper identity: %w", err)
		}
		k, err := keeper.New(engine, addr, cfg.Keeper.Workers, keeper.WithLogger(logger), keeper.WithPublisher(pub))
		if err != nil {
			return err
		}
		if err := k.Schedule(ctx, cfg.Keeper.Schedule); err != nil {
			return err
		}
		k.Start()
		defer k.Stop()
	}

	srv := api.NewServer(engine,
		api.WithPublisher(pub),
		api.WithLogger(logger),
		api.WithMaxTokenAge(cfg.HTTP.MaxTokenAge),
	)
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.String("program_id", engine.ProgramID()))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
