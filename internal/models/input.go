package models

// InputKind is the media type of an inbound message.
type InputKind string

const (
	InputText  InputKind = "text"
	InputImage InputKind = "image"
	InputAudio InputKind = "audio"
)

// Payload carries the media of one inbound message. The media layer has already
// downloaded and validated it; only the fields matching the InputKind are read.
type Payload struct {
	Text      string
	Image     []byte
	MIMEType  string
	AudioPath string
	Caption   string
}

// RawText returns the text the user typed alongside the media, if any.
func (p Payload) RawText() string {
	if p.Text != "" {
		return p.Text
	}
	return p.Caption
}
