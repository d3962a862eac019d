package mimetypes

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type MIME string

const (
	Unknown   MIME = "unknown"
	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"
	ImageWEBP MIME = "image/webp"
	ImageSVG  MIME = "image/svg+xml"
)

// ToMIME strips parameters such as charset and lowercases the media type.
func ToMIME(raw string) MIME {
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return Unknown
	}
	return MIME(mt)
}

func (m MIME) IsImage() bool {
	return strings.HasPrefix(string(m), "image/")
}

// Detect sniffs the content type of data, the way a file picker labels a local file.
func Detect(data []byte) MIME {
	return ToMIME(mimetype.Detect(data).String())
}
