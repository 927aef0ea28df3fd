// Package credential 认证凭据领域 - HTTP 处理
package credential

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/containerd/errdefs"

	"auth-admin/internal/apiserver/admin"
	"auth-admin/internal/apiserver/auth"
	"auth-admin/internal/shared/model"
	"auth-admin/internal/shared/storage"
)

// Handler 认证凭据领域 HTTP 处理器
type Handler struct {
	svc *admin.Service
}

// NewHandler 创建凭据处理器
func NewHandler(svc *admin.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册凭据相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/credentials", h.List)
	mux.HandleFunc("GET /api/v1/credentials/count", h.Count)
	mux.HandleFunc("GET /api/v1/credentials/{id}", h.Get)
	mux.HandleFunc("POST /api/v1/credentials", h.Create)
	mux.HandleFunc("PATCH /api/v1/credentials/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/credentials/{id}", h.Delete)
}

// List 列出可见凭据（公开 + 自己的私有）
// GET /api/v1/credentials
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	creds, err := h.svc.ListCredentials(r.Context(), auth.GetPrincipal(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"credentials": creds,
		"total":       len(creds),
	})
}

// Count 统计可见凭据数
// GET /api/v1/credentials/count
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.CountCredentials(r.Context(), auth.GetPrincipal(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// Get 获取单个凭据
// GET /api/v1/credentials/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetCredential(r.Context(), auth.GetPrincipal(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create 创建凭据
// POST /api/v1/credentials
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CredentialInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.CreateCredential(r.Context(), auth.GetPrincipal(r.Context()), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Update 更新凭据
// PATCH /api/v1/credentials/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req model.CredentialInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.UpdateCredential(r.Context(), auth.GetPrincipal(r.Context()), id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete 删除凭据
// DELETE /api/v1/credentials/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteCredential(r.Context(), auth.GetPrincipal(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "credential deleted"})
}

// ============================================================================
// 工具函数
// ============================================================================

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError 将服务层错误映射为 HTTP 状态码
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errdefs.IsUnauthorized(err):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errdefs.IsPermissionDenied(err):
		writeError(w, http.StatusForbidden, err.Error())
	case errdefs.IsNotFound(err) || errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errdefs.IsInvalidArgument(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[credential] ERROR: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
