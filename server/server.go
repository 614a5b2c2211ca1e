package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/masambo/jukebox-joy-scan/config"
	"github.com/masambo/jukebox-joy-scan/core/auth"
	"github.com/masambo/jukebox-joy-scan/core/extraction"
	"github.com/masambo/jukebox-joy-scan/core/scan"
	"github.com/masambo/jukebox-joy-scan/db"
	"github.com/masambo/jukebox-joy-scan/logger"
	"github.com/masambo/jukebox-joy-scan/model"
	"github.com/masambo/jukebox-joy-scan/repository"
	"github.com/masambo/jukebox-joy-scan/storage"
)

// Start 初始化并启动HTTP服务器
func Start() {
	cfg := config.Load()
	auth.SetSecret(cfg.JWTSecret)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := storage.InitMinio(); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()
	logger.Info("Successfully connected to Redis")

	// 初始化数据库表结构
	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect gorm", logger.ErrorField(err))
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrateModels(
		&model.User{}, &model.UserRole{},
		&model.Bar{}, &model.BarManager{},
		&model.Album{}, &model.Song{},
		&model.Playlist{}, &model.PlaylistSong{},
	); err != nil {
		logger.Fatal("Failed to migrate schema", logger.ErrorField(err))
	}

	userRepo := repository.NewMySQLUserRepository(db.DB)
	barRepo := repository.NewMySQLBarRepository(db.DB)
	albumRepo := repository.NewMySQLAlbumRepository(db.DB)
	songRepo := repository.NewMySQLSongRepository(db.DB)
	playlistRepo := repository.NewMySQLPlaylistRepository(db.DB)

	extractor := extraction.NewClient(cfg.VisionAPIURL, cfg.VisionAPIKey, cfg.ScanTimeout)

	// 初始化处理器
	apiHandler := NewAPIHandler(userRepo, barRepo, albumRepo, songRepo, playlistRepo, extractor, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)

	// 顾客浏览端点（无需登录）
	router.HandleFunc("/api/bars/{slug}", apiHandler.GetBarBySlugHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/bars/{slug}/catalog", apiHandler.GetBarCatalogHandler).Methods(http.MethodGet)

	// 酒吧管理端点
	router.HandleFunc("/api/manage/bars", apiHandler.AuthMiddleware(apiHandler.CreateBarHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/manage/bar", apiHandler.AuthMiddleware(apiHandler.GetManagedBarHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/manage/bars/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateBarHandler)).Methods(http.MethodPut)

	// 歌单端点
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.ListPlaylistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.RenamePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/songs", apiHandler.AuthMiddleware(apiHandler.GetPlaylistSongsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}/songs", apiHandler.AuthMiddleware(apiHandler.AddPlaylistSongsHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/songs/{songId}", apiHandler.AuthMiddleware(apiHandler.RemovePlaylistSongHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/songs", apiHandler.AuthMiddleware(apiHandler.ListBarSongsHandler)).Methods(http.MethodGet)

	// 专辑相关的API端点
	router.HandleFunc("/api/albums", apiHandler.AuthMiddleware(apiHandler.CreateAlbumHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/albums/{id}", apiHandler.GetAlbumHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/albums/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateAlbumHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/albums/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteAlbumHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/albums/{id}/cover", apiHandler.AuthMiddleware(apiHandler.UploadCoverHandler)).Methods(http.MethodPost)

	// 批量扫描会话端点
	router.HandleFunc("/api/scan/sessions", apiHandler.AuthMiddleware(apiHandler.CreateScanSessionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/scan/sessions/{id}", apiHandler.AuthMiddleware(apiHandler.GetScanSessionHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/scan/sessions/{id}", apiHandler.AuthMiddleware(apiHandler.CloseScanSessionHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/scan/sessions/{id}/images", apiHandler.AuthMiddleware(apiHandler.AddScanImagesHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/scan/sessions/{id}/commit", apiHandler.AuthMiddleware(apiHandler.CommitScanSessionHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/scan/sessions/{id}/items/{itemId}", apiHandler.AuthMiddleware(apiHandler.EditScanItemHandler)).Methods(http.MethodPatch)
	router.HandleFunc("/api/scan/sessions/{id}/items/{itemId}", apiHandler.AuthMiddleware(apiHandler.RemoveScanItemHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/scan/sessions/{id}/items/{itemId}/rescan", apiHandler.AuthMiddleware(apiHandler.RescanItemHandler)).Methods(http.MethodPost)

	// 扫描进度WebSocket
	router.HandleFunc("/ws/scan/sessions/{id}", apiHandler.WebSocketScanHandler)

	// 可选的图片收件箱：把照片拖进目录即入队
	var inboxWatcher *scan.InboxWatcher
	if cfg.ScanInboxDir != "" && cfg.ScanInboxBarID > 0 {
		watcher, err := startInboxWatcher(apiHandler, cfg)
		if err != nil {
			logger.Error("Failed to start inbox watcher", logger.ErrorField(err))
		} else {
			inboxWatcher = watcher
		}
	}

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	if inboxWatcher != nil {
		inboxWatcher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", logger.ErrorField(err))
	}
	logger.Info("Server stopped")
}

// startInboxWatcher 为配置的酒吧打开常驻扫描会话，并用收件目录供给它
func startInboxWatcher(h *APIHandler, cfg *config.Config) (*scan.InboxWatcher, error) {
	maxDisk, err := h.albumRepo.MaxDiskNumber(context.Background(), cfg.ScanInboxBarID)
	if err != nil {
		return nil, err
	}

	policy := scan.RetryPolicy{
		MaxAttempts: cfg.ScanMaxAttempts,
		BackoffBase: cfg.ScanBackoffBase,
	}

	var sessionID string
	session, err := scan.NewSession(cfg.ScanInboxBarID, maxDisk+1, h.extractor, policy,
		scan.WithNotifier(func(item scan.Item) {
			h.progress.Publish(sessionID, item)
		}),
	)
	if err != nil {
		return nil, err
	}
	sessionID = session.ID
	h.sessions.Put(session)

	logger.Info("Inbox scan session opened",
		logger.String("sessionId", session.ID),
		logger.Int64("barId", cfg.ScanInboxBarID))

	return scan.NewInboxWatcher(cfg.ScanInboxDir, session)
}
