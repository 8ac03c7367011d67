// Package httpapi exposes the file and share operations over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/smartids/internal/common"
	"github.com/dmitrijs2005/smartids/internal/logging"
	"github.com/dmitrijs2005/smartids/internal/server/models"
	"github.com/dmitrijs2005/smartids/internal/server/services"
)

// FileService is implemented by *services.FileService.
type FileService interface {
	Upload(ctx context.Context, ownerID, originalName string, data []byte) (*models.File, error)
	ListOwned(ctx context.Context, ownerID string) ([]models.FileInfo, error)
	DownloadViaShare(ctx context.Context, token string) ([]byte, string, error)
}

// ShareService is implemented by *services.ShareService.
type ShareService interface {
	Issue(ctx context.Context, fileID, ownerID string, opts services.ShareOptions) (*models.Share, error)
	ListOwned(ctx context.Context, ownerID string) ([]models.ShareInfo, error)
}

// multipartOverhead is the slack allowed on top of MaxUploadSize for
// multipart boundaries and part headers.
const multipartOverhead = 1 << 20

// multipartMemory is the part of a multipart body buffered in memory;
// the rest spills to temporary files.
const multipartMemory = 32 << 20

type Handler struct {
	files         FileService
	shares        ShareService
	log           logging.Logger
	maxUploadSize int64
	publicBaseURL string
}

func NewHandler(files FileService, shares ShareService, maxUploadSize int64, publicBaseURL string, log logging.Logger) *Handler {
	return &Handler{
		files:         files,
		shares:        shares,
		log:           log.With("module", "http_api"),
		maxUploadSize: maxUploadSize,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		ErrorResponse(w, common.ErrorUnauthorized)
	}
	return id, ok
}

// limited reports whether uploads are capped; a non-positive
// MaxUploadSize means no limit, as in FileService.
func (h *Handler) limited() bool {
	return h.maxUploadSize > 0
}

// Upload handles POST /api/files/upload with the file in multipart field "file".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if h.limited() {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(w, common.ErrFileTooLarge)
			return
		}
		errorMessage(w, common.ErrorValidation, "No file uploaded")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		errorMessage(w, common.ErrorValidation, "No file uploaded")
		return
	}
	defer file.Close()

	var src io.Reader = file
	if h.limited() {
		src = io.LimitReader(file, h.maxUploadSize+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		h.log.Error(r.Context(), "read upload failed", "error", err)
		ErrorResponse(w, err)
		return
	}
	if h.limited() && int64(len(data)) > h.maxUploadSize {
		ErrorResponse(w, common.ErrFileTooLarge)
		return
	}

	f, err := h.files.Upload(r.Context(), ownerID, header.Filename, data)
	if err != nil {
		if errors.Is(err, common.ErrConfig) {
			errorMessage(w, err, "MASTER_KEY missing or invalid")
			return
		}
		if errors.Is(err, common.ErrorInternal) || errors.Is(err, common.ErrStorage) {
			errorMessage(w, err, "Upload failed")
			return
		}
		ErrorResponse(w, err)
		return
	}

	JSONResponse(w, http.StatusOK, Payload{
		Success: true,
		Message: "File uploaded & encrypted successfully",
		Data:    map[string]string{"id": f.ID},
	})
}

// ListFiles handles GET /api/files/my.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	list, err := h.files.ListOwned(r.Context(), ownerID)
	if err != nil {
		ErrorResponse(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, Payload{Success: true, Files: list})
}

// shareRequest accepts fileId as a JSON string or number.
type shareRequest struct {
	FileID           json.RawMessage `json:"fileId"`
	ExpiresInMinutes *int            `json:"expiresInMinutes"`
	MaxDownloads     *int            `json:"maxDownloads"`
}

func (req *shareRequest) fileID() (string, error) {
	raw := strings.TrimSpace(string(req.FileID))
	if raw == "" || raw == "null" {
		return "", fmt.Errorf("%w: fileId is required", common.ErrorValidation)
	}
	var s string
	if err := json.Unmarshal(req.FileID, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(req.FileID, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: fileId must be a string", common.ErrorValidation)
}

// Upper bounds of explicit share options: the longest expiry a
// time.Duration can hold, and the range of the max_downloads INTEGER column.
const (
	maxExpiresInMinutes = math.MaxInt64 / int64(time.Minute)
	maxShareDownloads   = math.MaxInt32
)

// options converts the request into ShareOptions. Omitted fields take the
// server defaults; explicit values must be positive and within bounds.
func (req *shareRequest) options() (services.ShareOptions, error) {
	var opts services.ShareOptions
	if req.ExpiresInMinutes != nil {
		if *req.ExpiresInMinutes <= 0 {
			return opts, fmt.Errorf("%w: expiresInMinutes must be positive", common.ErrorValidation)
		}
		if int64(*req.ExpiresInMinutes) > maxExpiresInMinutes {
			return opts, fmt.Errorf("%w: expiresInMinutes is too large", common.ErrorValidation)
		}
		opts.ExpiresIn = time.Duration(*req.ExpiresInMinutes) * time.Minute
	}
	if req.MaxDownloads != nil {
		if *req.MaxDownloads <= 0 {
			return opts, fmt.Errorf("%w: maxDownloads must be positive", common.ErrorValidation)
		}
		if int64(*req.MaxDownloads) > maxShareDownloads {
			return opts, fmt.Errorf("%w: maxDownloads is too large", common.ErrorValidation)
		}
		opts.MaxDownloads = *req.MaxDownloads
	}
	return opts, nil
}

// CreateShare handles POST /api/files/share.
func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req shareRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&req); err != nil {
		errorMessage(w, common.ErrorValidation, "Invalid request body")
		return
	}
	fileID, err := req.fileID()
	if err != nil {
		errorMessage(w, err, err.Error())
		return
	}
	opts, err := req.options()
	if err != nil {
		errorMessage(w, err, err.Error())
		return
	}

	share, err := h.shares.Issue(r.Context(), fileID, ownerID, opts)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			errorMessage(w, err, "File not found")
			return
		}
		h.log.Error(r.Context(), "issue share failed", "error", err)
		ErrorResponse(w, err)
		return
	}

	expiresAt := share.ExpiresAt
	JSONResponse(w, http.StatusOK, Payload{
		Success:   true,
		Message:   "Share link created",
		URL:       h.shareURL(r, share.Token),
		ExpiresAt: &expiresAt,
	})
}

// shareURL builds the public download link. Without a configured base URL
// it is derived from the request, honouring X-Forwarded-Proto.
func (h *Handler) shareURL(r *http.Request, token string) string {
	base := h.publicBaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
			scheme = p
		}
		base = scheme + "://" + r.Host
	}
	return base + sharePathPrefix + token
}

// ListShares handles GET /api/files/shares.
func (h *Handler) ListShares(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	list, err := h.shares.ListOwned(r.Context(), ownerID)
	if err != nil {
		h.log.Error(r.Context(), "list shares failed", "error", err)
		ErrorResponse(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, Payload{Success: true, Shares: list})
}

// DownloadShare handles GET /api/files/share/{token}. No authentication:
// the token is the credential.
func (h *Handler) DownloadShare(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		errorMessage(w, common.ErrorValidation, "Missing share token")
		return
	}

	data, name, err := h.files.DownloadViaShare(r.Context(), token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			errorMessage(w, err, "Invalid link")
			return
		}
		ErrorResponse(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", contentDisposition(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
