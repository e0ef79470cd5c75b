package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/mbeoliero/kit/log"

	"github.com/zhusq20/CapybaraChat/internal/config"
	"github.com/zhusq20/CapybaraChat/internal/gateway"
	"github.com/zhusq20/CapybaraChat/internal/handler"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/internal/repository"
	"github.com/zhusq20/CapybaraChat/internal/router"
	"github.com/zhusq20/CapybaraChat/internal/service"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"github.com/zhusq20/CapybaraChat/pkg/idgen"
	"github.com/zhusq20/CapybaraChat/pkg/jwt"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "config loaded: mode=%s, notify_driver=%s", cfg.Server.Mode, cfg.Notify.Driver)

	if err := idgen.Init(cfg.Server.NodeId); err != nil {
		log.CtxError(ctx, "failed to initialize id generator: %v", err)
		panic(err)
	}

	constant.InitRedisKeyPrefix(cfg.Redis.KeyPrefix)
	log.CtxInfo(ctx, "redis key prefix: %s", constant.GetRedisKeyPrefix())

	repos, err := repository.NewRepositories(cfg)
	if err != nil {
		log.CtxError(ctx, "failed to initialize repositories: %v", err)
		panic(err)
	}
	defer repos.Close()

	if err := repos.CheckConnection(ctx); err != nil {
		log.CtxError(ctx, "database connection check failed: %v", err)
		panic(err)
	}
	if cfg.Server.AutoMigrate {
		if err := repository.AutoMigrate(repos.DB); err != nil {
			log.CtxError(ctx, "auto migrate failed: %v", err)
			panic(err)
		}
	}
	log.CtxInfo(ctx, "database connection established")

	bus, err := newBus(cfg, repos)
	if err != nil {
		log.CtxError(ctx, "failed to initialize notify bus: %v", err)
		panic(err)
	}
	defer bus.Close()

	dispatcher := notify.NewDispatcher(bus, cfg.Notify.QueueSize, cfg.Notify.Workers)
	dispatcher.Run(ctx)

	var tokens *jwt.TokenStore
	if cfg.JWT.CheckRevoked {
		tokens = jwt.NewTokenStore(repos.Redis, cfg.JWT.ExpireHours)
	}
	dir := jwt.NewDirectory(cfg.JWT.Secret, cfg.JWT.ExternalSecret, cfg.JWT.ExternalRole, tokens)

	userService := service.NewUserService(repos, dispatcher)
	friendService := service.NewFriendService(repos, dispatcher)
	requestService := service.NewRequestService(repos, dispatcher)
	convService := service.NewConversationService(repos, dispatcher)
	msgService := service.NewMessageService(repos, dispatcher)
	cursorService := service.NewCursorService(repos, dispatcher)
	groupService := service.NewGroupService(repos, dispatcher)

	wsServer := gateway.NewWsServer(cfg.WebSocket, repos.Redis, dir, bus)
	if err := wsServer.Run(ctx); err != nil {
		log.CtxError(ctx, "failed to start websocket relay: %v", err)
		panic(err)
	}

	handlers := &router.Handlers{
		User:         handler.NewUserHandler(userService, tokens, wsServer),
		Friend:       handler.NewFriendHandler(friendService, requestService),
		Request:      handler.NewRequestHandler(requestService),
		Group:        handler.NewGroupHandler(groupService, requestService),
		Message:      handler.NewMessageHandler(msgService, cursorService),
		Conversation: handler.NewConversationHandler(convService, cursorService),
	}

	h := server.Default(
		server.WithHostPorts(fmt.Sprintf(":%d", cfg.Server.HTTPPort)),
	)
	router.SetupRouter(h, handlers, wsServer, dir, cfg)

	log.CtxInfo(ctx, "server starting on port %d", cfg.Server.HTTPPort)
	go h.Spin()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		log.CtxError(ctx, "server shutdown error: %v", err)
	}

	// stop notify workers after the last request has been served
	cancel()
	dispatcher.Wait()

	log.CtxInfo(ctx, "server stopped")
}

func newBus(cfg *config.Config, repos *repository.Repositories) (notify.Bus, error) {
	switch cfg.Notify.Driver {
	case "redis":
		return notify.NewRedisBus(repos.Redis), nil
	case "nats":
		return notify.ConnectNats(cfg.Notify.NatsURL, cfg.Notify.SubjectPrefix)
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Notify.Driver)
	}
}
