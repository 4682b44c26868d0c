package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatline/global/config"
	"chatline/logger"
	mid "chatline/middleware"
	"chatline/module/chat/api"
	"chatline/module/chat/conv"
	"chatline/module/chat/files"
	"chatline/module/chat/group"
	"chatline/module/chat/model"
	"chatline/module/chat/msg"
	"chatline/module/chat/store"
	"chatline/module/chat/unread"
	"chatline/service/mgo"
	"chatline/service/notify"
	"chatline/service/router"
	"chatline/service/storage"
	rds "chatline/service/storage/redis"
	"chatline/service/ws"
	"chatline/tools/ids"

	"github.com/gin-gonic/gin"
)

func main() {
	defer logger.Sync()

	if err := config.Load(); err != nil {
		logger.Errorf("[boot] config: %v", err)
		os.Exit(1)
	}
	cfg := &config.Global
	ids.SetNodeID(cfg.Server.NodeID)

	ctx := context.Background()
	if err := mgo.Init(ctx, cfg.Mongo); err != nil {
		logger.Errorf("[boot] mongo: %v", err)
		os.Exit(1)
	}
	defer func() { _ = mgo.Close(context.Background()) }()

	db := mgo.GetDB()
	if err := mgo.EnsureIndexes(ctx, db.Collection(model.ConversationTableName), model.ConversationIndexes()); err != nil {
		logger.Warnf("[boot] conversation indexes: %v", err)
	}
	if err := mgo.EnsureIndexes(ctx, db.Collection(model.MessageTableName), model.MessageIndexes()); err != nil {
		logger.Warnf("[boot] message indexes: %v", err)
	}

	convStore := store.NewMongoConversationStore(db)
	msgStore := store.NewMongoMessageStore(db)

	if cfg.Redis.Enabled {
		if err := rds.Init(cfg.Redis); err != nil {
			// Cache only; run without it rather than refuse to start.
			logger.Warnf("[boot] redis: %v", err)
		}
	}
	defer func() { _ = rds.Close() }()
	cache := storage.NewMessageCache(rds.Get(), cfg.Redis.CacheTTL)

	var pub notify.Publisher = notify.Noop{}
	if cfg.Nats.Enabled {
		np, err := notify.NewNatsPublisher(cfg.Nats)
		if err != nil {
			logger.Warnf("[boot] nats: %v", err)
		} else {
			pub = np
			defer np.Close()
		}
	}

	blobs, err := buildBlobStore(ctx, cfg.Upload)
	if err != nil {
		logger.Errorf("[boot] blob store: %v", err)
		os.Exit(1)
	}

	acct := unread.NewAccountant(convStore, msgStore, cache)
	convSvc := conv.NewService(convStore)
	groupSvc := group.NewManager(convStore, msgStore, cache)
	msgSvc := msg.NewService(convStore, msgStore, cache, acct)

	reg := ws.NewRegistry()
	fan := ws.NewFanout(8, 1024)
	defer fan.Close()
	rtr := router.New(reg, convStore, fan, pub)
	wsSrv := ws.NewServer(reg, fan, rtr)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	mid.Default().Add(mid.Cors())
	engine.Use(gin.Recovery(), mid.Default().Use())

	api.Register(engine, api.New(convSvc, groupSvc, msgSvc, acct, blobs, convStore), cfg.Server.RequireAuth)
	engine.GET("/ws", wsSrv.HandleWS)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		logger.Infof("[boot] listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("[boot] serve: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("[boot] shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Warnf("[boot] shutdown: %v", err)
	}
}

func buildBlobStore(ctx context.Context, cfg config.UploadConfig) (files.BlobStore, error) {
	if cfg.Backend == "minio" {
		return files.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	}
	return files.NewDiskStore(cfg.Dir)
}
