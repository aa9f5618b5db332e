package media

import (
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Object key prefixes for the two kinds of uploads.
const (
	AudioPrefix = "audio"
	CoverPrefix = "covers"
)

var nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

const maxBaseLength = 100

// safeBase reduces an uploaded file name to a storage-safe stem.
func safeBase(name string) string {
	base := strings.TrimSpace(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))

	base = multipleSpaces.ReplaceAllString(base, "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")
	base = strings.Trim(base, ".")

	if len(base) > maxBaseLength {
		base = base[:maxBaseLength]
	}
	if base == "" {
		base = "upload"
	}
	return base
}

// ObjectName builds a unique object key such as "audio/My_Song_1a2b3c4d.mp3".
// The extension is kept as uploaded, lowercased.
func ObjectName(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	ext = nonAlphaNumeric.ReplaceAllString(ext, "")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return path.Join(prefix, safeBase(filename)+"_"+suffix+ext)
}

// Host mime.types files disagree on audio types, so pin the ones uploads use.
func init() {
	for ext, typ := range map[string]string{
		".mp3": "audio/mpeg",
		".wav": "audio/wav",
		".m4a": "audio/mp4",
	} {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			panic(err)
		}
	}
}

// ContentType guesses a Content-Type from an object key.
func ContentType(key string) string {
	typ := mime.TypeByExtension(strings.ToLower(path.Ext(key)))
	if typ == "" {
		return "application/octet-stream"
	}
	if mediaType, _, err := mime.ParseMediaType(typ); err == nil {
		return mediaType
	}
	return typ
}
