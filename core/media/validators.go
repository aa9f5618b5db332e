package media

import (
	"fmt"
	"image"
	_ "image/gif" // register decoders for ValidateImage
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
)

// AllowedAudioExtensions is the audio upload allow-list, lowercase with dot.
var AllowedAudioExtensions = []string{".mp3", ".wav", ".m4a"}

// ValidationError is a user-facing rejection of an uploaded file.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateAudioFile checks the extension of name against AllowedAudioExtensions.
// Only the name is inspected; file content is not sniffed.
func ValidateAudioFile(name string) error {
	ext := audioExt(name)
	for _, allowed := range AllowedAudioExtensions {
		if ext == allowed {
			return nil
		}
	}
	return &ValidationError{
		Message: fmt.Sprintf("Unsupported audio format: %s. Allowed: %s", ext, strings.Join(AllowedAudioExtensions, ", ")),
	}
}

// audioExt returns the lowercased extension of name's base. Leading dots
// start a hidden name, not an extension, so ".mp3" has none.
func audioExt(name string) string {
	base := strings.TrimLeft(filepath.Base(name), ".")
	return strings.ToLower(filepath.Ext(base))
}

// ValidateImage checks that r starts with a decodable image header.
func ValidateImage(r io.Reader) error {
	if _, _, err := image.DecodeConfig(r); err != nil {
		return &ValidationError{
			Message: "Upload a valid image. The file you uploaded was either not an image or a corrupted image.",
		}
	}
	return nil
}
