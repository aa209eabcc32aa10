package backend

import (
	"mime"
	"path/filepath"
	"strings"
)

// AudioMIMEType guesses the MIME type of a voice note from its extension.
// Messaging platforms mostly deliver Ogg/Opus, which is the default.
func AudioMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".oga", ".ogg", ".opus":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a", ".aac":
		return "audio/aac"
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "audio/") {
		return t
	}
	return "audio/ogg"
}
