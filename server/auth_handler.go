package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/masambo/jukebox-joy-scan/core/auth"
	"github.com/masambo/jukebox-joy-scan/logger"
	"github.com/masambo/jukebox-joy-scan/model"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"` // 可以是用户名或邮箱
	Password string `json:"password"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// LoginHandler handles user login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("[Login] 解析请求体失败", logger.ErrorField(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username/Email and password are required", http.StatusBadRequest)
		return
	}

	// 查询用户 - 支持用户名或邮箱登录
	var user *model.User
	var err error
	if strings.Contains(req.Username, "@") {
		user, err = h.userRepo.GetUserByEmail(r.Context(), req.Username)
	} else {
		user, err = h.userRepo.GetUserByUsername(r.Context(), req.Username)
	}

	if err != nil {
		logger.Error("[Login] 查询用户失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] 密码验证失败", logger.String("username", req.Username))
		http.Error(w, "Invalid username/email or password", http.StatusUnauthorized)
		return
	}

	roles, err := h.userRepo.GetRoles(r.Context(), user.ID)
	if err != nil {
		logger.Error("[Login] 查询用户角色失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, roles)
	if err != nil {
		logger.Error("[Login] 生成token失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("[Login] 登录成功",
		logger.Int64("userId", user.ID),
		logger.String("username", user.Username))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"roles":    roles,
		},
	})
}

// RegisterHandler handles new account registration
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	if existing, err := h.userRepo.GetUserByUsername(r.Context(), req.Username); err != nil {
		logger.Error("[Register] 查询用户失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	} else if existing != nil {
		http.Error(w, "Username already taken", http.StatusConflict)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("[Register] 密码哈希失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	userID, err := h.userRepo.CreateUser(r.Context(), user)
	if err != nil {
		logger.Error("[Register] 创建用户失败", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// 新注册的账号默认是酒吧经理；管理员角色由运维手工授予
	if err := h.userRepo.GrantRole(r.Context(), userID, model.RoleBarManager); err != nil {
		logger.Error("[Register] 授予角色失败", logger.ErrorField(err))
	}

	logger.Info("[Register] 注册成功",
		logger.Int64("userId", userID),
		logger.String("username", req.Username))

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       userID,
		"username": req.Username,
	})
}
