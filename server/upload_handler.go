package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"  // register decoders for DecodeConfig
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"ComfyPortal/logger"
	"ComfyPortal/storage"

	"github.com/google/uuid"
)

const maxImageUploadSize = 10 << 20 // 10MB限制

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)

// renameUpload builds the forwarded filename: a uuid prefix plus the
// sanitized original base name.
func renameUpload(originalName string) string {
	base := filepath.Base(originalName)
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	if base == "" || base == "." {
		base = "image"
	}
	return fmt.Sprintf("%s_%s", uuid.New().String(), base)
}

// UploadImageHandler 接收图片并转发到ComfyUI的/upload/image接口
// 文件会被重命名、解析出尺寸，并归档一份到对象存储
func (h *APIHandler) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadSize)
	if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   "文件上传失败: " + err.Error(),
		})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   "没有接收到文件",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   "文件读取失败",
		})
		return
	}

	logger.Info("接收到文件",
		logger.String("originalname", header.Filename),
		logger.String("mimetype", header.Header.Get("Content-Type")),
		logger.Int("size", len(data)))

	newName := renameUpload(header.Filename)

	// 解析图片尺寸；非图片内容不中断转发，尺寸置零
	var width, height int
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	} else {
		logger.Warn("解析图片尺寸失败", logger.String("file", newName), logger.ErrorField(err))
	}

	// 归档到MinIO，失败不影响转发
	if storage.GetMinioClient() != nil {
		objectName := "uploads/images/" + newName
		contentType := header.Header.Get("Content-Type")
		if err := storage.UploadBytes(r.Context(), objectName, data, contentType); err != nil {
			logger.Warn("归档上传文件失败", logger.String("object", objectName), logger.ErrorField(err))
		}
	}

	comfyBody, status, err := h.forwardToComfyUI(r.Context(), newName, header.Header.Get("Content-Type"), data)
	if err != nil {
		logger.Error("转发到ComfyUI失败", logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, apiResponse{
			Success: false,
			Error:   "无法连接到ComfyUI服务器，请确保ComfyUI正在运行",
		})
		return
	}

	if status < 200 || status >= 300 {
		logger.Error("ComfyUI服务器错误",
			logger.Int("status", status),
			logger.String("body", string(comfyBody)))
		writeJSON(w, status, apiResponse{
			Success: false,
			Error:   "ComfyUI服务器错误",
		})
		return
	}

	var comfyResp map[string]interface{}
	if err := json.Unmarshal(comfyBody, &comfyResp); err != nil {
		comfyResp = map[string]interface{}{"raw": string(comfyBody)}
	}
	comfyResp["width"] = width
	comfyResp["height"] = height

	logger.Info("ComfyUI上传成功",
		logger.String("file", newName),
		logger.Int("width", width),
		logger.Int("height", height))

	writeJSON(w, http.StatusOK, comfyResp)
}

// forwardToComfyUI re-wraps the file as multipart form data and posts it to
// the render backend with a bounded timeout.
func (h *APIHandler) forwardToComfyUI(ctx context.Context, filename, contentType string, data []byte) ([]byte, int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, 0, fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, 0, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.ComfyUITimeout)
	defer cancel()

	uploadURL := strings.TrimRight(h.cfg.ComfyUIURL, "/") + "/upload/image"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build ComfyUI request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	logger.Info("转发上传请求到ComfyUI服务器", logger.String("url", uploadURL))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to reach ComfyUI: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read ComfyUI response: %w", err)
	}
	return body, resp.StatusCode, nil
}
