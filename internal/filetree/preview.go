package filetree

import (
	"encoding/base64"
	"regexp"

	"github.com/spcai/labcms/internal/blob"
)

// PreviewKind selects how file content is shown.
type PreviewKind string

// Preview kinds.
const (
	PreviewImage PreviewKind = "image"
	PreviewText  PreviewKind = "text"
	PreviewError PreviewKind = "error"
)

// Preview error messages.
const (
	MsgUnsupported = "Unsupported file format"
	MsgLoadFailed  = "Failed to load file content"
)

var (
	imageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)
	textExt  = regexp.MustCompile(`(?i)\.(txt|md|js|ts|html|css)$`)
)

// Preview is the viewer content of a selected file.
type Preview struct {
	Kind PreviewKind
	Name string
	Path string
	// Text holds the content of text files.
	Text string
	// Source is a data URL for images.
	Source string
	Error  string
}

// classify builds a preview of already downloaded content.
func classify(name, path string, data []byte) Preview {
	p := Preview{Name: name, Path: path}
	switch {
	case imageExt.MatchString(name):
		p.Kind = PreviewImage
		p.Source = "data:" + blob.DetectMimeType(name, data) + ";base64," + base64.StdEncoding.EncodeToString(data)
	case textExt.MatchString(name):
		p.Kind = PreviewText
		p.Text = string(data)
	default:
		p.Kind = PreviewError
		p.Error = MsgUnsupported
	}
	return p
}
