// Package images stores inline image payloads on local disk and hands
// back the reference persisted on messages and profiles. Remote object
// storage is a deployment concern, not handled here.
package images

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"chat-relay/errors"
)

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save decodes a data URI or raw base64 payload, sniffs its content type
// and writes it under a fresh UUID name. Anything that does not sniff as
// an image is rejected before touching the disk.
func (s *Store) Save(payload string) (string, error) {
	data, err := decodePayload(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrNotAnImage, err)
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("%w: got %s", errors.ErrNotAnImage, mtype.String())
	}

	name := uuid.NewString() + mtype.Extension()
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return name, nil
}

// decodePayload accepts both "data:image/png;base64,AAAA" URIs, as the
// browser client sends, and bare base64 strings.
func decodePayload(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		_, encoded, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data URI")
		}
		payload = encoded
	}
	return base64.StdEncoding.DecodeString(payload)
}
