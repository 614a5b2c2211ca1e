package server

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/masambo/jukebox-joy-scan/cache"
	"github.com/masambo/jukebox-joy-scan/logger"
	"github.com/masambo/jukebox-joy-scan/model"
	"github.com/masambo/jukebox-joy-scan/storage"
)

func (h *APIHandler) albumFromRequest(w http.ResponseWriter, r *http.Request) (*model.Album, bool) {
	idStr := mux.Vars(r)["id"]
	albumID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid album ID", http.StatusBadRequest)
		return nil, false
	}

	album, err := h.albumRepo.GetAlbumByID(r.Context(), albumID)
	if err != nil {
		logger.Error("[Album] 查询专辑失败", logger.Int64("albumId", albumID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	if album == nil {
		http.Error(w, "Album not found", http.StatusNotFound)
		return nil, false
	}
	return album, true
}

// GetAlbumHandler 返回一张专辑及其歌曲
func (h *APIHandler) GetAlbumHandler(w http.ResponseWriter, r *http.Request) {
	album, ok := h.albumFromRequest(w, r)
	if !ok {
		return
	}

	songs, err := h.songRepo.GetSongsByAlbumID(r.Context(), album.ID)
	if err != nil {
		logger.Error("[Album] 查询歌曲失败", logger.Int64("albumId", album.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, model.AlbumWithSongs{Album: *album, Songs: songs})
}

// CreateAlbumRequest is the manual album creation request body
type CreateAlbumRequest struct {
	BarID      int64  `json:"barId"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DiskNumber int    `json:"diskNumber"`
	Genre      string `json:"genre"`
	Year       int    `json:"year"`
	Songs      []struct {
		TrackNumber int    `json:"trackNumber"`
		Title       string `json:"title"`
		Duration    string `json:"duration"`
		Artist      string `json:"artist"`
	} `json:"songs"`
}

// CreateAlbumHandler 手工录入一张专辑（不走扫描流水线）。
// 未指定碟号时自动取目录最大碟号的下一个。
func (h *APIHandler) CreateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BarID == 0 || req.Title == "" {
		http.Error(w, "barId and title are required", http.StatusBadRequest)
		return
	}
	if !h.requireBarAccess(w, r, req.BarID) {
		return
	}

	diskNumber := req.DiskNumber
	if diskNumber == 0 {
		maxDisk, err := h.albumRepo.MaxDiskNumber(r.Context(), req.BarID)
		if err != nil {
			logger.Error("[Album] 查询最大碟号失败", logger.Int64("barId", req.BarID), logger.ErrorField(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		diskNumber = maxDisk + 1
	}

	album := &model.Album{
		BarID:      req.BarID,
		Title:      req.Title,
		DiskNumber: diskNumber,
	}
	if req.Artist != "" {
		album.Artist = sql.NullString{String: req.Artist, Valid: true}
	}
	if req.Genre != "" {
		album.Genre = sql.NullString{String: req.Genre, Valid: true}
	}
	if req.Year != 0 {
		album.Year = sql.NullInt64{Int64: int64(req.Year), Valid: true}
	}

	albumID, err := h.albumRepo.CreateAlbum(r.Context(), album)
	if err != nil {
		logger.Error("[Album] 创建专辑失败", logger.String("title", req.Title), logger.ErrorField(err))
		http.Error(w, "Failed to create album", http.StatusInternalServerError)
		return
	}
	album.ID = albumID

	if len(req.Songs) > 0 {
		songs := make([]*model.Song, 0, len(req.Songs))
		for _, s := range req.Songs {
			if s.TrackNumber < 1 || s.Title == "" {
				continue
			}
			song := &model.Song{AlbumID: albumID, Title: s.Title, TrackNumber: s.TrackNumber}
			if s.Duration != "" {
				song.Duration = sql.NullString{String: s.Duration, Valid: true}
			}
			artist := s.Artist
			if artist == "" {
				artist = req.Artist
			}
			if artist != "" {
				song.Artist = sql.NullString{String: artist, Valid: true}
			}
			songs = append(songs, song)
		}
		if err := h.songRepo.CreateSongs(r.Context(), albumID, songs); err != nil {
			logger.Error("[Album] 写入歌曲失败", logger.Int64("albumId", albumID), logger.ErrorField(err))
			http.Error(w, "Album created but songs could not be added", http.StatusInternalServerError)
			return
		}
	}

	cache.InvalidateCatalog(r.Context(), req.BarID)
	logger.Info("[Album] 专辑创建成功",
		logger.Int64("albumId", albumID),
		logger.Int64("barId", req.BarID),
		logger.Int("diskNumber", diskNumber))

	respondJSON(w, http.StatusCreated, album)
}

// UpdateAlbumRequest is the album update request body; nil fields stay unchanged
type UpdateAlbumRequest struct {
	Title      *string `json:"title"`
	Artist     *string `json:"artist"`
	DiskNumber *int    `json:"diskNumber"`
	Genre      *string `json:"genre"`
	Year       *int    `json:"year"`
}

// UpdateAlbumHandler 更新专辑信息
func (h *APIHandler) UpdateAlbumHandler(w http.ResponseWriter, r *http.Request) {
	album, ok := h.albumFromRequest(w, r)
	if !ok {
		return
	}
	if !h.requireBarAccess(w, r, album.BarID) {
		return
	}

	var req UpdateAlbumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title != nil {
		album.Title = *req.Title
	}
	if req.Artist != nil {
		album.Artist = sql.NullString{String: *req.Artist, Valid: *req.Artist != ""}
	}
	if req.DiskNumber != nil {
		album.DiskNumber = *req.DiskNumber
	}
	if req.Genre != nil {
		album.Genre = sql.NullString{String: *req.Genre, Valid: *req.Genre != ""}
	}
	if req.Year != nil {
		album.Year = sql.NullInt64{Int64: int64(*req.Year), Valid: *req.Year != 0}
	}

	if album.Title == "" {
		http.Error(w, "Album title cannot be empty", http.StatusBadRequest)
		return
	}

	if err := h.albumRepo.UpdateAlbum(r.Context(), album); err != nil {
		logger.Error("[Album] 更新专辑失败", logger.Int64("albumId", album.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	cache.InvalidateCatalog(r.Context(), album.BarID)
	respondJSON(w, http.StatusOK, album)
}

// DeleteAlbumHandler 删除专辑及其全部歌曲
func (h *APIHandler) DeleteAlbumHandler(w http.ResponseWriter, r *http.Request) {
	album, ok := h.albumFromRequest(w, r)
	if !ok {
		return
	}
	if !h.requireBarAccess(w, r, album.BarID) {
		return
	}

	if err := h.albumRepo.DeleteAlbum(r.Context(), album.ID); err != nil {
		logger.Error("[Album] 删除专辑失败", logger.Int64("albumId", album.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	cache.InvalidateCatalog(r.Context(), album.BarID)
	logger.Info("[Album] 专辑已删除",
		logger.Int64("albumId", album.ID),
		logger.Int64("barId", album.BarID))
	w.WriteHeader(http.StatusNoContent)
}

// UploadCoverHandler 上传专辑封面到MinIO并记录其公开地址。
// multipart表单字段：coverFile
func (h *APIHandler) UploadCoverHandler(w http.ResponseWriter, r *http.Request) {
	album, ok := h.albumFromRequest(w, r)
	if !ok {
		return
	}
	if !h.requireBarAccess(w, r, album.BarID) {
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("coverFile")
	if err != nil {
		http.Error(w, "Missing 'coverFile' in form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read cover file", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	url, err := storage.UploadCover(r.Context(), album.BarID, album.ID, contentType, data)
	if err != nil {
		logger.Error("[Cover] 上传封面失败", logger.Int64("albumId", album.ID), logger.ErrorField(err))
		http.Error(w, "Failed to upload cover", http.StatusInternalServerError)
		return
	}

	if err := h.albumRepo.SetCoverURL(r.Context(), album.ID, url); err != nil {
		logger.Error("[Cover] 记录封面地址失败", logger.Int64("albumId", album.ID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	cache.InvalidateCatalog(r.Context(), album.BarID)
	respondJSON(w, http.StatusOK, map[string]string{"coverUrl": url})
}
