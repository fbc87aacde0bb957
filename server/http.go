package server

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
)

// NewRouter 注册 WebSocket、管理与监控接口；静态资源取自 webDir
func NewRouter(rm *RoomManager, webDir string) http.Handler {
	access := &zapio.Writer{Log: Log.Desugar().Named("http"), Level: zapcore.InfoLevel}

	router := mux.NewRouter()
	router.HandleFunc("/ws", HandleWS(rm)).Methods(http.MethodGet)
	router.HandleFunc("/admin/config", HandleAdminConfig(rm)).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/metrics", HandleMetrics(rm)).Methods(http.MethodGet)
	router.HandleFunc("/rooms", HandleRooms(rm)).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if webDir != "" {
		// 前后端分离：将 / 映射到 web 目录的静态资源
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(webDir)))
	}
	return handlers.CombinedLoggingHandler(access, router)
}
