package client

import (
	"chat-presence/domain"
	"chat-presence/domain/mimetypes"
	"chat-presence/errors"
	"encoding/base64"
	"fmt"
)

// Attachment is an image selected for the next message, already encoded as a data URL.
type Attachment struct {
	Name        string
	ContentType mimetypes.MIME
	DataURL     string
}

// Composer holds the compose state: the text input and the optional image preview.
type Composer struct {
	text  string
	image *Attachment
}

func (c *Composer) SetText(text string) {
	c.text = text
}

func (c *Composer) Text() string {
	return c.text
}

// AttachImage rejects anything whose declared content type is not image/*.
// An undeclared type is refused as well, the content is never sniffed.
func (c *Composer) AttachImage(name, contentType string, data []byte) error {
	mt := mimetypes.ToMIME(contentType)
	if !mt.IsImage() {
		return fmt.Errorf("%w: %s is %s", errors.ErrNotAnImage, name, mt)
	}
	c.image = &Attachment{
		Name:        name,
		ContentType: mt,
		DataURL:     encodeDataURL(mt, data),
	}
	return nil
}

func (c *Composer) RemoveImage() {
	c.image = nil
}

func (c *Composer) Image() (Attachment, bool) {
	if c.image == nil {
		return Attachment{}, false
	}
	return *c.image, true
}

func (c *Composer) Draft() domain.Draft {
	draft := domain.Draft{Text: c.text}
	if c.image != nil {
		draft.Image = c.image.DataURL
	}
	return draft
}

// Clear empties the text and drops the preview.
func (c *Composer) Clear() {
	c.text = ""
	c.image = nil
}

func encodeDataURL(mt mimetypes.MIME, data []byte) string {
	return "data:" + string(mt) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
