package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/heimdex/clipmark-agent/internal/logging"
)

var (
	ErrInvalidRange  = errors.New("invalid range format")
	ErrUnsatisfiable = errors.New("range not satisfiable")
	ErrOutsideRoot   = errors.New("path outside media root")
)

// byteRange is an inclusive byte span of a file.
type byteRange struct {
	first, last int64
}

func (r byteRange) length() int64 {
	return r.last - r.first + 1
}

// parseByteRange reads the first span of a "bytes=" Range header. A nil
// range with nil error means the header was absent.
func parseByteRange(header string, size int64) (*byteRange, error) {
	if header == "" {
		return nil, nil
	}
	ranges, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrInvalidRange
	}
	ranges, _, _ = strings.Cut(ranges, ",")
	firstStr, lastStr, ok := strings.Cut(strings.TrimSpace(ranges), "-")
	if !ok {
		return nil, ErrInvalidRange
	}

	var r byteRange
	switch {
	case firstStr == "":
		n, err := strconv.ParseInt(lastStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrInvalidRange
		}
		r = byteRange{first: max(size-n, 0), last: size - 1}
	default:
		first, err := strconv.ParseInt(firstStr, 10, 64)
		if err != nil || first < 0 {
			return nil, ErrInvalidRange
		}
		last := size - 1
		if lastStr != "" {
			if last, err = strconv.ParseInt(lastStr, 10, 64); err != nil {
				return nil, ErrInvalidRange
			}
		}
		r = byteRange{first: first, last: last}
	}

	if r.first > r.last || r.first >= size {
		return nil, ErrUnsatisfiable
	}
	r.last = min(r.last, size-1)
	return &r, nil
}

// MediaServer serves local media files so a loopback URL can be used as a
// direct media source. Byte ranges are supported for seeking.
type MediaServer struct {
	root   string
	logger *slog.Logger
}

func NewMediaServer(root string, logger *slog.Logger) *MediaServer {
	return &MediaServer{root: root, logger: logging.WithComponent(logger, "media")}
}

// Enabled reports whether a media directory is configured.
func (s *MediaServer) Enabled() bool {
	return s != nil && s.root != ""
}

// Resolve maps a slash-separated name to a file under the media root.
func (s *MediaServer) Resolve(name string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(name))
	full := filepath.Join(s.root, clean)
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

// ServeFile writes the named media file, honouring a single Range span.
func (s *MediaServer) ServeFile(w http.ResponseWriter, r *http.Request, name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}

	size := stat.Size()
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	span, err := parseByteRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrInvalidRange):
		span = nil
	}

	if span == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		_, err = io.Copy(w, file)
		return err
	}

	if _, err := file.Seek(span.first, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(span.length(), 10))
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", span.first, span.last, size))
	w.WriteHeader(http.StatusPartialContent)
	_, err = io.CopyN(w, file, span.length())
	return err
}
