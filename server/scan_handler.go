package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/masambo/jukebox-joy-scan/cache"
	"github.com/masambo/jukebox-joy-scan/core/scan"
	"github.com/masambo/jukebox-joy-scan/logger"
)

// CreateScanSessionRequest is the scan session creation request body
type CreateScanSessionRequest struct {
	BarID        int64 `json:"barId"`
	WithMetadata bool  `json:"withMetadata"`
}

// CreateScanSessionHandler 开启一个批量上传会话。碟号游标从该酒吧
// 目录现有最大碟号的下一个开始。
func (h *APIHandler) CreateScanSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateScanSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.BarID == 0 {
		http.Error(w, "barId is required", http.StatusBadRequest)
		return
	}
	if !h.requireBarAccess(w, r, req.BarID) {
		return
	}

	maxDisk, err := h.albumRepo.MaxDiskNumber(r.Context(), req.BarID)
	if err != nil {
		logger.Error("[Scan] 查询最大碟号失败", logger.Int64("barId", req.BarID), logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	policy := scan.RetryPolicy{
		MaxAttempts: h.cfg.ScanMaxAttempts,
		BackoffBase: h.cfg.ScanBackoffBase,
	}

	// 会话ID要等NewSession返回才有，通知闭包晚一步拿到它
	var sessionID string
	session, err := scan.NewSession(req.BarID, maxDisk+1, h.extractor, policy,
		scan.WithMetadataMode(req.WithMetadata),
		scan.WithNotifier(func(item scan.Item) {
			h.progress.Publish(sessionID, item)
		}),
	)
	if err != nil {
		logger.Error("[Scan] 创建会话失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	sessionID = session.ID
	h.sessions.Put(session)

	logger.Info("[Scan] 会话已创建",
		logger.String("sessionId", session.ID),
		logger.Int64("barId", req.BarID),
		logger.Int("startDisk", maxDisk+1))

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"sessionId": session.ID,
		"barId":     req.BarID,
		"startDisk": maxDisk + 1,
	})
}

// sessionFromRequest 解析路径中的会话并校验调用者对其酒吧的管理权限
func (h *APIHandler) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*scan.Session, bool) {
	id := mux.Vars(r)["id"]
	session, ok := h.sessions.Get(id)
	if !ok {
		http.Error(w, "Scan session not found", http.StatusNotFound)
		return nil, false
	}
	if !h.requireBarAccess(w, r, session.BarID) {
		return nil, false
	}
	return session, true
}

// AddScanImagesHandler 向会话追加一批唱片照片，立即开始扫描。
// multipart表单字段：images（可重复）
func (h *APIHandler) AddScanImagesHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		http.Error(w, "No images in form", http.StatusBadRequest)
		return
	}

	newItems := make([]scan.NewItem, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			http.Error(w, "Failed to open uploaded file", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			http.Error(w, "Failed to read uploaded file", http.StatusInternalServerError)
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "image/jpeg"
		}
		newItems = append(newItems, scan.NewItem{
			FileName:    header.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}

	added, err := session.AddImages(newItems)
	if err != nil {
		logger.Error("[Scan] 入队失败", logger.String("sessionId", session.ID), logger.ErrorField(err))
		http.Error(w, "Failed to enqueue images", http.StatusInternalServerError)
		return
	}

	logger.Info("[Scan] 图片已入队",
		logger.String("sessionId", session.ID),
		logger.Int("count", len(added)))

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"items": added,
	})
}

// GetScanSessionHandler 返回会话状态及全部条目（入队顺序）
func (h *APIHandler) GetScanSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": session.ID,
		"barId":     session.BarID,
		"scanning":  session.Scanning(),
		"items":     session.Items(),
	})
}

// EditScanItemHandler 编辑条目的专辑字段；与扫描进度无关，随时可用
func (h *APIHandler) EditScanItemHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var patch scan.FieldsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, found := session.EditItem(mux.Vars(r)["itemId"], patch)
	if !found {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// RemoveScanItemHandler 从会话中丢弃一个条目
func (h *APIHandler) RemoveScanItemHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	if !session.RemoveItem(mux.Vars(r)["itemId"]) {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RescanItemHandler 把扫描失败的条目重新排到队尾
func (h *APIHandler) RescanItemHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	if err := session.Rescan(mux.Vars(r)["itemId"]); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// CommitScanSessionHandler 把扫描完成的条目批量写入目录。
// 条目之间互不影响；没有歌曲的条目跳过。提交后会话关闭。
func (h *APIHandler) CommitScanSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	if session.Scanning() {
		http.Error(w, "Scanning is still in progress", http.StatusConflict)
		return
	}

	result := h.committer.Commit(r.Context(), session.BarID, session.Items())

	cache.InvalidateCatalog(r.Context(), session.BarID)
	h.sessions.Close(session.ID)
	h.progress.CloseSession(session.ID)

	respondJSON(w, http.StatusOK, result)
}

// CloseScanSessionHandler 放弃会话，释放全部暂存图片
func (h *APIHandler) CloseScanSessionHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromRequest(w, r)
	if !ok {
		return
	}

	h.sessions.Close(session.ID)
	h.progress.CloseSession(session.ID)

	logger.Info("[Scan] 会话已放弃", logger.String("sessionId", session.ID))
	w.WriteHeader(http.StatusNoContent)
}
