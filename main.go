package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TalkTime/global"
	"TalkTime/global/config"
	"TalkTime/logger"
	mid "TalkTime/middleware"
	midsec "TalkTime/middleware/security"
	"TalkTime/module/login"
	"TalkTime/module/message"
	"TalkTime/service/chat"
	"TalkTime/service/chat/handlers"
	"TalkTime/service/ticket"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	path := flag.String("c", os.Getenv("TALKTIME_CONFIG"), "config file (yaml)")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		logger.Error("load config failed", zap.Error(err))
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		logger.Error("gateway exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	glog.Flush()
	logger.Sync()
}

func run(cfg config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := global.ConfigAll(ctx, cfg)
	if err != nil {
		return err
	}
	defer in.Close()

	// 注册表和发送器互相引用，监听器延迟绑定
	var presence chat.PresenceListener
	reg := chat.NewRegistry(chat.RegistryOptions{
		Listener: func(ev chat.PresenceEvent) { presence(ev) },
	})
	sender := chat.NewSender(reg)
	var natsPresence chat.PresenceListener
	if in.Presence != nil {
		natsPresence = in.Presence.Listener()
	}
	presence = handlers.Fanout(handlers.PresenceBroadcaster(reg, sender), natsPresence)

	tickets := ticket.New[chat.Conn](ticket.Options{
		TTL:      cfg.Login.TicketTTL,
		Capacity: cfg.Login.TicketCapacity,
	})
	hs := login.NewHandshake(tickets, reg, sender, in.Identity, in.Cred, in.Users,
		login.Options{CollaboratorTimeout: cfg.Login.CollaboratorTimeout})

	mc := cfg.Message
	msgDisp := message.NewDispatcher(in.Storage,
		message.Options{Node: in.Node, Publisher: in.Events},
		message.NewText(in.Storage, message.TextOptions{MaxLen: mc.TextMaxLen, BannedWords: mc.BannedWords}),
		message.NewImage(in.Storage, message.ImageOptions{Exts: mc.ImageExts, MaxBytes: mc.ImageMaxBytes}),
		message.NewRecall(in.Storage, message.RecallOptions{Window: mc.RecallWindow}),
		message.NewSystem(mc.SystemUserID),
	)

	disp := chat.NewDispatcher(
		handlers.NewLoginHandler(hs),
		handlers.NewHeartbeatHandler(reg),
		handlers.NewAuthorizeHandler(hs),
		handlers.NewMessageHandler(reg, sender, msgDisp),
	)

	sc := cfg.Server
	srv := chat.NewServer(reg, disp, sender, in.Node, chat.ServerOptions{
		ReadLimit:    sc.ReadLimit,
		SendQueue:    sc.SendQueue,
		WriteTimeout: sc.WriteTimeout,
		PingInterval: sc.PingInterval,
		MsgRate:      sc.MsgRate,
		MsgBurst:     sc.MsgBurst,
		AllowOrigins: sc.AllowOrigins,
	})
	sweeper := chat.NewSweeper(reg, chat.SweepOptions{
		UnauthTimeout: sc.UnauthTimeout,
		IdleTimeout:   sc.IdleTimeout,
		Every:         sc.SweepEvery,
	})

	r := gin.New()
	r.Use(gin.Recovery(), mid.NewManager(mid.AccessLog()).Use())
	r.GET(sc.WsPath, srv.HandleWS)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 0, "online": reg.Count()})
	})
	login.NewHandler(hs).Register(r, midsec.Middleware(midsec.DefaultOptions(cfg.Login.CallbackSecret)))
	httpSrv := &http.Server{Addr: sc.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	gs := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("[HTTP] listening", zap.String("addr", sc.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", sc.GrpcAddr)
		if err != nil {
			return err
		}
		logger.Info("[gRPC] listening", zap.String("addr", sc.GrpcAddr))
		return gs.Serve(lis)
	})
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Int("connections", reg.Count()))
		healthSrv.Shutdown()

		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(sctx)
		srv.Close()
		tickets.Purge()
		gs.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
