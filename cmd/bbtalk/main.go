package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/bbtalk/internal/config"
	"github.com/xxxsen/bbtalk/internal/filestore"
	"github.com/xxxsen/bbtalk/internal/handler"
	"github.com/xxxsen/bbtalk/internal/job"
	"github.com/xxxsen/bbtalk/internal/repo"
	"github.com/xxxsen/bbtalk/internal/schedule"
	"github.com/xxxsen/bbtalk/internal/service"
	"github.com/xxxsen/bbtalk/internal/track"
	"github.com/xxxsen/bbtalk/internal/wechat"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "bbtalk",
		Short: "bbtalk wechat micro-blog bot",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run bbtalk server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_path", cfg.DBPath),
		zap.String("file_store", cfg.FileStore.Type),
	)

	codec, err := wechat.NewCodec(cfg.WeChat.Token, cfg.WeChat.EncodingAESKey)
	if err != nil {
		return fmt.Errorf("init codec: %w", err)
	}
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	client := wechat.NewClient(cfg.WeChat.AppID, cfg.WeChat.AppSecret)

	noteRepo := repo.NewNoteRepo(db)
	bindingRepo := repo.NewBindingRepo(db)

	clock := track.SystemClock()
	idemTracker := track.NewIdempotencyTracker(time.Duration(cfg.Track.IdempotencyTTL)*time.Second, clock)
	completionTracker := track.NewCompletionTracker(time.Duration(cfg.Track.CompletionTTL)*time.Second, clock)

	mediaDomain := fmt.Sprintf("%s.%s.%s", cfg.Domain.Sub, cfg.Domain.SecondLevel, cfg.Domain.Top)
	snapshotService := service.NewSnapshotService(noteRepo, store, cfg.Paths.JSON, cfg.PageSize)
	bindingService := service.NewBindingService(bindingRepo, cfg.Binding.Key, 128, 10*time.Minute)
	talkService := service.NewTalkService(noteRepo, snapshotService, bindingService, store, completionTracker, mediaDomain)
	mediaService := service.NewMediaService(client, store, talkService, mediaDomain, cfg.Paths.Image, cfg.Paths.Media)
	messageService := service.NewMessageService(talkService, mediaService, bindingService, idemTracker, completionTracker)

	deps := handler.RouterDeps{
		WeChat: handler.NewWeChatHandler(codec, messageService),
		Admin:  handler.NewAdminHandler(snapshotService, cfg.Binding.Key),
	}

	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewTrackerSweepJob(idemTracker, completionTracker), cfg.Track.SweepSpec); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("shutting down")
	return nil
}
