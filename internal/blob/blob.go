// Package blob stores uploaded images (payment screenshots, the "about me"
// photo) and hands back a public URL for them.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Backend names accepted by STORAGE_BACKEND.
const (
	BackendLocal      = "local"
	BackendCloudinary = "cloudinary"
)

// Folders used by the bot.
const (
	FolderPayments = "payments"
	FolderAboutMe  = "about-me"
)

var ErrBadKey = errors.New("blob: invalid folder or name")

// Store saves r under folder/name. The returned key is what Delete takes;
// the URL is what gets shown to admins and sent to Telegram.
type Store interface {
	Save(ctx context.Context, folder, name string, r io.Reader) (url, key string, err error)
	Delete(ctx context.Context, key string) error
}

// NewName returns a unique file name with the given extension.
func NewName(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "jpg"
	}
	return uuid.NewString() + "." + ext
}

// Ext returns the extension of a file name or URL path, without the dot.
func Ext(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimPrefix(path.Ext(name), ".")
}

func cleanKey(folder, name string) (string, error) {
	if folder == "" || name == "" || strings.Contains(folder+name, "..") || strings.ContainsAny(name, `/\`) {
		return "", ErrBadKey
	}
	return path.Join(folder, name), nil
}
