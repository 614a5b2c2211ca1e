package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/masambo/jukebox-joy-scan/cache"
	"github.com/masambo/jukebox-joy-scan/logger"
	"github.com/masambo/jukebox-joy-scan/model"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// CreateBarRequest is the bar creation request body
type CreateBarRequest struct {
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Address        string `json:"address"`
	Description    string `json:"description"`
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
}

// CreateBarHandler 创建新酒吧并把当前用户登记为它的经理
func (h *APIHandler) CreateBarHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateBarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "Bar name is required", http.StatusBadRequest)
		return
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		http.Error(w, "Slug must contain only lowercase letters, digits and hyphens", http.StatusBadRequest)
		return
	}

	if existing, err := h.barRepo.GetBarBySlug(r.Context(), slug); err != nil {
		logger.Error("[CreateBar] 查询slug失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	} else if existing != nil {
		http.Error(w, "Slug already in use", http.StatusConflict)
		return
	}

	bar := &model.Bar{
		Name: req.Name,
		Slug: slug,
	}
	if req.Address != "" {
		bar.Address = sql.NullString{String: req.Address, Valid: true}
	}
	if req.Description != "" {
		bar.Description = sql.NullString{String: req.Description, Valid: true}
	}
	if req.PrimaryColor != "" {
		bar.PrimaryColor = sql.NullString{String: req.PrimaryColor, Valid: true}
	}
	if req.SecondaryColor != "" {
		bar.SecondaryColor = sql.NullString{String: req.SecondaryColor, Valid: true}
	}

	barID, err := h.barRepo.CreateBar(r.Context(), bar)
	if err != nil {
		logger.Error("[CreateBar] 创建酒吧失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	bar.ID = barID

	if err := h.barRepo.AddManager(r.Context(), userID, barID); err != nil {
		logger.Error("[CreateBar] 登记经理失败",
			logger.Int64("barId", barID),
			logger.Int64("userId", userID),
			logger.ErrorField(err))
	}

	logger.Info("[CreateBar] 酒吧创建成功",
		logger.Int64("barId", barID),
		logger.String("slug", slug),
		logger.Int64("managerId", userID))

	respondJSON(w, http.StatusCreated, bar)
}

// UpdateBarRequest 酒吧展示信息更新请求体；nil字段保持不变
type UpdateBarRequest struct {
	Address        *string `json:"address"`
	Description    *string `json:"description"`
	LogoURL        *string `json:"logoUrl"`
	PrimaryColor   *string `json:"primaryColor"`
	SecondaryColor *string `json:"secondaryColor"`
}

// UpdateBarHandler 更新酒吧的展示信息（简介、地址、标志和主题色）。
// 名称和slug是身份字段，创建后不可修改。
func (h *APIHandler) UpdateBarHandler(w http.ResponseWriter, r *http.Request) {
	barID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid bar ID", http.StatusBadRequest)
		return
	}
	if !h.requireBarAccess(w, r, barID) {
		return
	}

	bar, err := h.barRepo.GetBarByID(r.Context(), barID)
	if err != nil {
		logger.Error("[UpdateBar] 查询酒吧失败", logger.Int64("barId", barID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if bar == nil {
		http.Error(w, "Bar not found", http.StatusNotFound)
		return
	}

	var req UpdateBarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Address != nil {
		bar.Address = sql.NullString{String: *req.Address, Valid: *req.Address != ""}
	}
	if req.Description != nil {
		bar.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.LogoURL != nil {
		bar.LogoURL = sql.NullString{String: *req.LogoURL, Valid: *req.LogoURL != ""}
	}
	if req.PrimaryColor != nil {
		bar.PrimaryColor = sql.NullString{String: *req.PrimaryColor, Valid: *req.PrimaryColor != ""}
	}
	if req.SecondaryColor != nil {
		bar.SecondaryColor = sql.NullString{String: *req.SecondaryColor, Valid: *req.SecondaryColor != ""}
	}

	if err := h.barRepo.UpdateBar(r.Context(), bar); err != nil {
		logger.Error("[UpdateBar] 更新酒吧失败", logger.Int64("barId", barID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("[UpdateBar] 酒吧信息已更新", logger.Int64("barId", barID))
	respondJSON(w, http.StatusOK, bar)
}

// GetBarBySlugHandler 顾客扫码入口：根据slug返回酒吧信息
func (h *APIHandler) GetBarBySlugHandler(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	bar, err := h.barRepo.GetBarBySlug(r.Context(), slug)
	if err != nil {
		logger.Error("[GetBar] 查询酒吧失败", logger.String("slug", slug), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if bar == nil {
		http.Error(w, "Bar not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, bar)
}

// GetBarCatalogHandler 返回酒吧的完整点唱机目录，按碟号排序。
// 顾客浏览页高频访问，结果走Redis缓存。
func (h *APIHandler) GetBarCatalogHandler(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	bar, err := h.barRepo.GetBarBySlug(r.Context(), slug)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if bar == nil {
		http.Error(w, "Bar not found", http.StatusNotFound)
		return
	}

	if cached, err := cache.GetCatalog(r.Context(), bar.ID); err == nil && cached != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"bar":    bar,
			"albums": cached.Albums,
		})
		return
	}

	albums, err := h.albumRepo.GetAlbumsByBarID(r.Context(), bar.ID)
	if err != nil {
		logger.Error("[Catalog] 查询专辑失败", logger.Int64("barId", bar.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := cache.SetCatalog(r.Context(), bar.ID, albums); err != nil {
		logger.Warn("[Catalog] 写入缓存失败", logger.Int64("barId", bar.ID), logger.ErrorField(err))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"bar":    bar,
		"albums": albums,
	})
}

// GetManagedBarHandler 返回当前登录经理管理的酒吧
func (h *APIHandler) GetManagedBarHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bar, err := h.barRepo.GetBarForManager(r.Context(), userID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if bar == nil {
		http.Error(w, "No bar assigned to this account", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, bar)
}
