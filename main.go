package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bumparena/server"
)

// bumparena 入口：加载配置，启动 HTTP + WebSocket 服务，并初始化房间管理器
func main() {
	cfg, err := server.LoadConfig(".env", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// 使用 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	var opts []server.RoomOption
	if cfg.LogLevel == "debug" {
		opts = append(opts, server.WithObserver(server.DebugObserver()))
	}
	rm := server.NewRoomManager(cfg, opts...)
	// 先预创建一个默认房间，便于快速试跑
	_ = rm.GetOrCreateRoom(server.DefaultRoomID)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.NewRouter(rm, "web"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		server.Log.Infof("bumparena listening on %s; open http://localhost%s/", cfg.Addr(), cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnf("http shutdown: %v", err)
	}
	rm.Shutdown()
}
