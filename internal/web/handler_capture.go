package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/betelcare/internal/camera"
	"github.com/vbonduro/betelcare/internal/capture"
	"github.com/vbonduro/betelcare/internal/domain"
	"github.com/vbonduro/betelcare/internal/previewstore"
	"github.com/vbonduro/betelcare/internal/session"
)

const (
	maxPhotoSize = 20 * 1024 * 1024 // 20 MB
	maxFrameSize = 8 * 1024 * 1024

	// submitTimeout bounds a prediction that outlives the request. It ends
	// early enough for the result to be written before writeTimeout.
	submitTimeout = writeTimeout - 30*time.Second
)

// allowedImageTypes is the set of MIME types accepted for uploaded photos,
// matching what the inference service accepts. net/http.DetectContentType
// handles JPEG and PNG via magic-byte sniffing. WebP is detected separately
// because the WHATWG sniff spec (and therefore the stdlib) does not include a
// WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

func (s *Server) renderCapture(w http.ResponseWriter, sess *session.Session) {
	view := captureView{Lang: sess.Language(), Capture: sess.Capture.Snapshot()}
	if err := s.renderPartial(w, view.Lang, "capture", view); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

// handleCameraStart receives the outcome of the browser's permission prompt
// and opens the camera when it was granted.
func (s *Server) handleCameraStart(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Camera.Permit(r.FormValue("granted") == "true")
	sess.Capture.StartCamera(r.Context())
	s.renderCapture(w, sess)
}

// handleCameraFrame accepts one encoded video frame from the browser.
func (s *Server) handleCameraFrame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existingSession(r)
	if !ok {
		http.Error(w, "no session", http.StatusNotFound)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameSize))
	if err != nil {
		http.Error(w, "frame too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := sess.Camera.Push(data); err != nil {
		if errors.Is(err, camera.ErrStopped) {
			http.Error(w, "camera not active", http.StatusConflict)
			return
		}
		if errors.Is(err, camera.ErrFrameTooLarge) {
			http.Error(w, "frame too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid frame", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCameraSnapshot(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Capture.CapturePhoto(r.Context())
	s.renderCapture(w, sess)
}

func (s *Server) handleCameraStop(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Capture.StopCamera(r.Context())
	s.renderCapture(w, sess)
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image file required", http.StatusBadRequest)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		s.logger.Error("read upload failed", "session_id", sess.ID, "error", err)
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		http.Error(w, "unsupported image format", http.StatusBadRequest)
		return
	}

	sess.Capture.SelectFile(r.Context(), domain.Image{Data: imageData, MimeType: mimeType})
	s.renderCapture(w, sess)
}

func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Capture.RemoveImage(r.Context())
	s.renderCapture(w, sess)
}

// handleSubmit runs the prediction and renders the result. The prediction is
// detached from the request so a client that navigates away does not turn a
// good diagnosis into a failure.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), submitTimeout)
	defer cancel()
	sess.Capture.Submit(ctx)

	if sess.Capture.Snapshot().State == capture.ResultReady {
		w.Header().Set("HX-Trigger", "diagnosed")
	}
	s.renderCapture(w, sess)
}

// handlePreview serves the session's current preview image. Only the live
// preview reference of the caller's own session is reachable.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.existingSession(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	key := sess.Capture.Snapshot().PreviewKey
	if key == "" {
		http.NotFound(w, r)
		return
	}

	reader, mimeType, err := s.previews.Get(r.Context(), key)
	if err != nil {
		if !errors.Is(err, previewstore.ErrNotFound) {
			s.logger.Error("read preview failed", "session_id", sess.ID, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "preview reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write preview failed", "session_id", sess.ID, "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
