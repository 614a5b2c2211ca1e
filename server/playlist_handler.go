package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/masambo/jukebox-joy-scan/logger"
	"github.com/masambo/jukebox-joy-scan/model"
)

// playlistFromRequest 解析路径中的歌单ID并校验当前用户对其所属酒吧的管理权限
func (h *APIHandler) playlistFromRequest(w http.ResponseWriter, r *http.Request) (*model.Playlist, bool) {
	idStr := mux.Vars(r)["id"]
	playlistID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid playlist ID", http.StatusBadRequest)
		return nil, false
	}

	playlist, err := h.playlistRepo.GetPlaylistByID(r.Context(), playlistID)
	if err != nil {
		logger.Error("[Playlist] 查询歌单失败", logger.Int64("playlistId", playlistID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	if playlist == nil {
		http.Error(w, "Playlist not found", http.StatusNotFound)
		return nil, false
	}
	if !h.requireBarAccess(w, r, playlist.BarID) {
		return nil, false
	}
	return playlist, true
}

// barIDFromQuery 解析barId查询参数
func barIDFromQuery(w http.ResponseWriter, r *http.Request) (int64, bool) {
	barID, err := strconv.ParseInt(r.URL.Query().Get("barId"), 10, 64)
	if err != nil || barID <= 0 {
		http.Error(w, "barId query parameter is required", http.StatusBadRequest)
		return 0, false
	}
	return barID, true
}

// ListPlaylistsHandler 返回酒吧的全部歌单及歌曲数量，按创建时间倒序
func (h *APIHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	barID, ok := barIDFromQuery(w, r)
	if !ok {
		return
	}
	if !h.requireBarAccess(w, r, barID) {
		return
	}

	playlists, err := h.playlistRepo.GetPlaylistsByBarID(r.Context(), barID)
	if err != nil {
		logger.Error("[Playlist] 查询歌单列表失败", logger.Int64("barId", barID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if playlists == nil {
		playlists = []*model.PlaylistWithCount{}
	}

	respondJSON(w, http.StatusOK, playlists)
}

// CreatePlaylistRequest 创建歌单的请求体
type CreatePlaylistRequest struct {
	BarID int64  `json:"barId"`
	Name  string `json:"name"`
}

// CreatePlaylistHandler 创建新歌单
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BarID == 0 || req.Name == "" {
		http.Error(w, "barId and name are required", http.StatusBadRequest)
		return
	}
	if !h.requireBarAccess(w, r, req.BarID) {
		return
	}

	playlist := &model.Playlist{
		BarID:     req.BarID,
		Name:      req.Name,
		CreatedBy: userID,
	}
	playlistID, err := h.playlistRepo.CreatePlaylist(r.Context(), playlist)
	if err != nil {
		logger.Error("[Playlist] 创建歌单失败", logger.String("name", req.Name), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	playlist.ID = playlistID

	logger.Info("[Playlist] 歌单创建成功",
		logger.Int64("playlistId", playlistID),
		logger.Int64("barId", req.BarID),
		logger.String("name", req.Name))

	respondJSON(w, http.StatusCreated, playlist)
}

// RenamePlaylistHandler 重命名歌单
func (h *APIHandler) RenamePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.playlistFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Playlist name cannot be empty", http.StatusBadRequest)
		return
	}

	if err := h.playlistRepo.RenamePlaylist(r.Context(), playlist.ID, req.Name); err != nil {
		logger.Error("[Playlist] 重命名失败", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	playlist.Name = req.Name
	respondJSON(w, http.StatusOK, playlist)
}

// DeletePlaylistHandler 删除歌单及其全部条目
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.playlistFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.playlistRepo.DeletePlaylist(r.Context(), playlist.ID); err != nil {
		logger.Error("[Playlist] 删除歌单失败", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("[Playlist] 歌单已删除",
		logger.Int64("playlistId", playlist.ID),
		logger.Int64("barId", playlist.BarID))
	w.WriteHeader(http.StatusNoContent)
}

// GetPlaylistSongsHandler 返回歌单条目，按position排序
func (h *APIHandler) GetPlaylistSongsHandler(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.playlistFromRequest(w, r)
	if !ok {
		return
	}

	entries, err := h.playlistRepo.GetPlaylistEntries(r.Context(), playlist.ID)
	if err != nil {
		logger.Error("[Playlist] 查询歌单条目失败", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*model.PlaylistEntry{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"playlist": playlist,
		"songs":    entries,
	})
}

// AddPlaylistSongsHandler 把歌曲追加到歌单尾部；重复的歌曲跳过
func (h *APIHandler) AddPlaylistSongsHandler(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.playlistFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		SongIDs []int64 `json:"songIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.SongIDs) == 0 {
		http.Error(w, "songIds is required", http.StatusBadRequest)
		return
	}

	added, err := h.playlistRepo.AddSongs(r.Context(), playlist.ID, req.SongIDs)
	if err != nil {
		logger.Error("[Playlist] 添加歌曲失败", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("[Playlist] 歌曲已加入歌单",
		logger.Int64("playlistId", playlist.ID),
		logger.Int("added", added))
	respondJSON(w, http.StatusOK, map[string]interface{}{"added": added})
}

// RemovePlaylistSongHandler 从歌单中移除一首歌
func (h *APIHandler) RemovePlaylistSongHandler(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.playlistFromRequest(w, r)
	if !ok {
		return
	}

	songID, err := strconv.ParseInt(mux.Vars(r)["songId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid song ID", http.StatusBadRequest)
		return
	}

	if err := h.playlistRepo.RemoveSong(r.Context(), playlist.ID, songID); err != nil {
		logger.Error("[Playlist] 移除歌曲失败", logger.Int64("playlistId", playlist.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListBarSongsHandler 返回酒吧目录中的全部歌曲及其专辑信息，供选歌使用
func (h *APIHandler) ListBarSongsHandler(w http.ResponseWriter, r *http.Request) {
	barID, ok := barIDFromQuery(w, r)
	if !ok {
		return
	}
	if !h.requireBarAccess(w, r, barID) {
		return
	}

	songs, err := h.songRepo.GetSongsByBarID(r.Context(), barID)
	if err != nil {
		logger.Error("[Playlist] 查询酒吧歌曲失败", logger.Int64("barId", barID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if songs == nil {
		songs = []*model.SongWithAlbum{}
	}

	respondJSON(w, http.StatusOK, songs)
}
