package rag

import "strings"

// FileType is the declared content type of a stored file.
type FileType string

const (
	FileTypePlain FileType = "plain"
	FileTypePDF   FileType = "pdf"
)

// IsSupported reports whether files of this type can be ingested.
func (t FileType) IsSupported() bool {
	switch t {
	case FileTypePlain, FileTypePDF:
		return true
	default:
		return false
	}
}

// FileTypeFromMIME maps a MIME type such as "text/plain; charset=utf-8" to its subtype.
// Anything that is not plain text or PDF comes back as its raw subtype and is unsupported.
func FileTypeFromMIME(mime string) FileType {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, '/'); i >= 0 {
		mime = mime[i+1:]
	}
	return FileType(mime)
}
