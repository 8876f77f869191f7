package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strings"

	"afaq.com/stylist-gateway/internal/core"
	"afaq.com/stylist-gateway/internal/geo"
	"afaq.com/stylist-gateway/internal/metrics"
)

// Machine-stable error codes returned next to the localized message.
const (
	CodeUnsupportedImage = "unsupported_image_type"
	CodeImageTooLarge    = "image_too_large"
	CodeEmptyRequest     = "empty_request"
	CodeInvalidForm      = "invalid_form"
	CodeInternal         = "internal_error"
)

const (
	msgUnsupportedImage = "نوع الصورة مش مدعوم"
	msgImageTooLarge    = "الصورة كبيرة أوي"
	msgEmptyRequest     = "لازم تبعت رسالة أو صورة"
	msgInvalidForm      = "الطلب مش مفهوم"
	msgInternal         = "فيه مشكلة، جرب تاني"

	// LivenessText is served at GET /.
	LivenessText = "البوت شغال 100%"

	// formOverhead is the body allowance on top of the image for the other fields.
	formOverhead = 1 << 20
)

// imageFormats maps accepted upload extensions to image formats.
var imageFormats = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".webp": "webp",
}

// ChatReplier answers one validated chat turn.
type ChatReplier interface {
	Reply(ctx context.Context, in core.ChatInput) (*core.ChatResult, error)
}

type APIHandler struct {
	chat          ChatReplier
	maxImageBytes int64
}

func NewAPIHandler(chat ChatReplier, maxImageBytes int64) *APIHandler {
	return &APIHandler{chat: chat, maxImageBytes: maxImageBytes}
}

type ChatResponse struct {
	Reply    string `json:"reply"`
	City     string `json:"city"`
	HasImage bool   `json:"has_image"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// requestError is a validation failure surfaced as 400.
type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.code }

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	message, image, err := h.parseChatForm(w, r)
	if err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			metrics.ChatRequests.WithLabelValues(metrics.OutcomeRejected).Inc()
			writeError(w, http.StatusBadRequest, reqErr.code, reqErr.message)
			return
		}
		log.Printf("Error reading chat form: %v", err)
		metrics.ChatRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
		writeError(w, http.StatusInternalServerError, CodeInternal, msgInternal)
		return
	}
	if message == "" && image == nil {
		metrics.ChatRequests.WithLabelValues(metrics.OutcomeRejected).Inc()
		writeError(w, http.StatusBadRequest, CodeEmptyRequest, msgEmptyRequest)
		return
	}

	addr := geo.ResolveAddress(r.Header, r.RemoteAddr)
	result, err := h.chat.Reply(r.Context(), core.ChatInput{Address: addr, Message: message, Image: image})
	if err != nil {
		if errors.Is(err, core.ErrEmptyRequest) {
			metrics.ChatRequests.WithLabelValues(metrics.OutcomeRejected).Inc()
			writeError(w, http.StatusBadRequest, CodeEmptyRequest, msgEmptyRequest)
			return
		}
		log.Printf("Error handling chat for %s: %v", addr, err)
		metrics.ChatRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
		writeError(w, http.StatusInternalServerError, CodeInternal, msgInternal)
		return
	}

	outcome := metrics.OutcomeOK
	if result.ModelFailed {
		outcome = metrics.OutcomeFallback
	}
	metrics.ChatRequests.WithLabelValues(outcome).Inc()
	writeJSON(w, http.StatusOK, ChatResponse{Reply: result.Reply, City: result.City, HasImage: result.HasImage})
}

// parseChatForm reads the message and optional image from a multipart or
// urlencoded body. An empty upload counts as no image.
func (h *APIHandler) parseChatForm(w http.ResponseWriter, r *http.Request) (string, *core.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+formOverhead)

	err := r.ParseMultipartForm(formOverhead)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) && isMultipart(r) {
			return "", nil, &requestError{CodeImageTooLarge, msgImageTooLarge}
		}
		return "", nil, &requestError{CodeInvalidForm, msgInvalidForm}
	}

	message := strings.TrimSpace(r.FormValue("message"))

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return message, nil, nil
	}
	if err != nil {
		return "", nil, &requestError{CodeInvalidForm, msgInvalidForm}
	}
	defer file.Close()

	image, err := h.readImage(file, header)
	if err != nil {
		return "", nil, err
	}
	return message, image, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

func (h *APIHandler) readImage(file multipart.File, header *multipart.FileHeader) (*core.Image, error) {
	if header.Filename == "" {
		return nil, nil
	}
	format, ok := imageFormats[strings.ToLower(filepath.Ext(header.Filename))]
	if !ok {
		return nil, &requestError{CodeUnsupportedImage, msgUnsupportedImage}
	}
	if header.Size > h.maxImageBytes {
		return nil, &requestError{CodeImageTooLarge, msgImageTooLarge}
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > h.maxImageBytes {
		return nil, &requestError{CodeImageTooLarge, msgImageTooLarge}
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &core.Image{Format: format, Data: data}, nil
}

// RecoverJSON turns a panic in a handler into the standard internal error
// body. http.ErrAbortHandler is re-raised for the server to handle.
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			log.Printf("Panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rvr, debug.Stack())
			metrics.ChatRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
			writeError(w, http.StatusInternalServerError, CodeInternal, msgInternal)
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *APIHandler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(LivenessText))
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
