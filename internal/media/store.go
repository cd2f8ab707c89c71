// Package media stores uploaded files on local disk.
package media

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"relaychat/backend/internal/apperr"
)

// PublicPrefix is the URL path under which stored files are served.
const PublicPrefix = "/uploads/"

const sniffLen = 3072

// Stored describes a saved upload.
type Stored struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

type Store struct {
	dir      string
	maxBytes int64
	log      *slog.Logger
}

func NewStore(dir string, maxBytes int64, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes, log: log.With("component", "media")}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save writes r under a fresh uuid name. The extension comes from the sniffed
// content type, falling back to the client's file name.
func (s *Store) Save(r io.Reader, originalName string) (*Stored, error) {
	br := bufio.NewReaderSize(io.LimitReader(r, s.maxBytes+1), sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, apperr.Store(fmt.Errorf("read upload: %w", err))
	}
	if len(head) == 0 {
		return nil, apperr.Validation("upload.missing", "uploaded file is empty")
	}

	mtype := mimetype.Detect(head)
	ext := mtype.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(originalName))
	}
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("create temp file: %w", err))
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	n, err := io.Copy(f, br)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, apperr.Store(fmt.Errorf("write upload: %w", err))
	}
	if n > s.maxBytes {
		return nil, apperr.Validation("upload.too_large", fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, apperr.Store(fmt.Errorf("store upload: %w", err))
	}

	s.log.Info("file uploaded", "name", name, "mime", mtype.String(), "size", n)
	return &Stored{URL: PublicPrefix + name, MimeType: mtype.String(), Size: n}, nil
}
