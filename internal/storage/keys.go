package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

func OriginalKey(userID int64, contentType string) string {
	return fmt.Sprintf("creations/originals/%d/%s.%s", userID, uuid.NewString(), ExtensionFromContentType(contentType))
}

func GeneratedKey(userID int64, contentType string) string {
	return fmt.Sprintf("creations/generated/%d/%s.%s", userID, uuid.NewString(), ExtensionFromContentType(contentType))
}

func StyleThumbnailKey(slug, contentType string) string {
	return fmt.Sprintf("styles/thumbnails/%s.%s", slug, ExtensionFromContentType(contentType))
}

func CategoryThumbnailKey(slug, contentType string) string {
	return fmt.Sprintf("categories/thumbnails/%s.%s", slug, ExtensionFromContentType(contentType))
}

// CreationsPrefix covers every per-user object; it is what the sweep walks.
const CreationsPrefix = "creations/"

func ExtensionFromContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "bin"
	}
}

var extensionTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
}

// ContentTypeFromKey guesses a MIME type from the key's extension.
func ContentTypeFromKey(key string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(key), "."))
	if ct, ok := extensionTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

var legacyThumbnail = regexp.MustCompile(`(?i)^styles/(?:thumbnails/s|thumbnails|thumbnail/s|thumbnail)/([^/]+)\.(png|jpg|jpeg|webp)$`)

// ThumbnailCandidates lists the keys worth trying for a requested style
// thumbnail path, canonical form first. Admin uploads were once written under
// styles/thumbnail/s/ and as .png where .jpg is now stored.
func ThumbnailCandidates(key string) []string {
	m := legacyThumbnail.FindStringSubmatch(key)
	if m == nil {
		return []string{key}
	}
	ext := strings.ToLower(m[2])
	if ext == "jpeg" {
		ext = "jpg"
	}
	canonical := "styles/thumbnails/" + m[1] + "." + ext

	out := []string{canonical}
	if canonical != key {
		out = append(out, key)
	}
	if ext == "png" {
		out = append(out, strings.TrimSuffix(canonical, ".png")+".jpg")
	}
	return out
}
