package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Allowed lists the MIME types the backend accepts.
var Allowed = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/webp":      true,
	"image/gif":       true,
	"video/mp4":       true,
	"application/pdf": true,
}

// File is an upload source.
type File struct {
	Name string
	Type string
	Size int64
	// Path is set for files on disk and enables duration probing.
	Path string
	Open func() (io.ReadCloser, error)
}

// IsVideo reports whether the file has a video MIME type.
func (f File) IsVideo() bool {
	return strings.HasPrefix(f.Type, "video/")
}

// FromPath stats path and detects its MIME type from the extension, falling
// back to the content.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	typ, err := detectType(path)
	if err != nil {
		return File{}, err
	}
	return File{
		Name: filepath.Base(path),
		Type: typ,
		Size: info.Size(),
		Path: path,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FromBytes wraps an in-memory payload.
func FromBytes(name, typ string, data []byte) File {
	if typ == "" {
		typ = sniff(name, data)
	}
	return File{
		Name: name,
		Type: typ,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func detectType(path string) (string, error) {
	if typ := byExtension(path); typ != "" {
		return typ, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return contentType(head[:n]), nil
}

func sniff(name string, data []byte) string {
	if typ := byExtension(name); typ != "" {
		return typ
	}
	if len(data) > 512 {
		data = data[:512]
	}
	return contentType(data)
}

// knownExt covers the allowed types whose extension the system MIME table
// may lack.
var knownExt = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

func byExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if typ, ok := knownExt[ext]; ok {
		return typ
	}
	typ := mime.TypeByExtension(ext)
	if typ == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(typ)
	if err != nil {
		return ""
	}
	return mediaType
}

func contentType(head []byte) string {
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(head))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}
