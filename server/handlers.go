package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/masambo/jukebox-joy-scan/config"
	"github.com/masambo/jukebox-joy-scan/core/auth"
	"github.com/masambo/jukebox-joy-scan/core/extraction"
	"github.com/masambo/jukebox-joy-scan/core/scan"
	"github.com/masambo/jukebox-joy-scan/model"
	"github.com/masambo/jukebox-joy-scan/repository"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	userRepo     repository.UserRepository
	barRepo      repository.BarRepository
	albumRepo    repository.AlbumRepository
	songRepo     repository.SongRepository
	playlistRepo repository.PlaylistRepository

	sessions  *scan.Manager
	extractor *extraction.Client
	committer *scan.Committer
	progress  *scanProgressHub

	cfg *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	userRepo repository.UserRepository,
	barRepo repository.BarRepository,
	albumRepo repository.AlbumRepository,
	songRepo repository.SongRepository,
	playlistRepo repository.PlaylistRepository,
	extractor *extraction.Client,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:     userRepo,
		barRepo:      barRepo,
		albumRepo:    albumRepo,
		songRepo:     songRepo,
		playlistRepo: playlistRepo,
		sessions:     scan.NewManager(),
		extractor:    extractor,
		committer:    scan.NewCommitter(albumRepo, songRepo),
		progress:     newScanProgressHub(),
		cfg:          cfg,
	}
}

type contextKey string

const (
	contextKeyUserID contextKey = "userID"
	contextKeyClaims contextKey = "claims"
)

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, contextKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(contextKeyUserID).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetClaimsFromContext extracts the parsed token claims from the request context
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, error) {
	claims, ok := ctx.Value(contextKeyClaims).(*auth.Claims)
	if !ok {
		return nil, fmt.Errorf("claims not found in context")
	}
	return claims, nil
}

// requireBarAccess 校验当前用户是否有权管理该酒吧。
// 管理员可以管理任何酒吧；酒吧经理只能管理自己名下的酒吧。
func (h *APIHandler) requireBarAccess(w http.ResponseWriter, r *http.Request, barID int64) bool {
	claims, err := GetClaimsFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	if claims.HasRole(model.RoleAdmin) {
		return true
	}

	manages, err := h.barRepo.ManagesBar(r.Context(), claims.UserID, barID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}
	if !manages {
		http.Error(w, "You do not manage this bar", http.StatusForbidden)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
