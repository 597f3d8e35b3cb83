package uploadkit

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// MIME types for the document formats the toolkit handles most often.
const (
	MIMETypeTextPlain       = "text/plain"
	MIMETypeTextHTML        = "text/html"
	MIMETypeTextCSV         = "text/csv"
	MIMETypeTextMarkdown    = "text/markdown"
	MIMETypeApplicationJSON = "application/json"
	MIMETypeApplicationXML  = "application/xml"
	MIMETypeImageJPEG       = "image/jpeg"
	MIMETypeImagePNG        = "image/png"
	MIMETypeImageGIF        = "image/gif"
	MIMETypeImageTIFF       = "image/tiff"
	MIMETypeImageBMP        = "image/bmp"
	MIMETypeImageWebP       = "image/webp"
	MIMETypeApplicationPDF  = "application/pdf"
	MIMETypeApplicationZip  = "application/zip"
	MIMETypeWordDocument    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypeExcelSheet      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMETypeOctetStream     = "application/octet-stream"
)

// extensionToMIME is consulted before mime.TypeByExtension so answers do
// not depend on the host's /etc/mime.types, and before content sniffing
// so container formats keep their specific type.
var extensionToMIME = map[string]string{
	".txt":  MIMETypeTextPlain,
	".html": MIMETypeTextHTML,
	".htm":  MIMETypeTextHTML,
	".csv":  MIMETypeTextCSV,
	".md":   MIMETypeTextMarkdown,
	".json": MIMETypeApplicationJSON,
	".xml":  MIMETypeApplicationXML,
	".jpg":  MIMETypeImageJPEG,
	".jpeg": MIMETypeImageJPEG,
	".png":  MIMETypeImagePNG,
	".gif":  MIMETypeImageGIF,
	".tif":  MIMETypeImageTIFF,
	".tiff": MIMETypeImageTIFF,
	".bmp":  MIMETypeImageBMP,
	".webp": MIMETypeImageWebP,
	".pdf":  MIMETypeApplicationPDF,
	".zip":  MIMETypeApplicationZip,
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".doc":  "application/msword",
	".docx": MIMETypeWordDocument,
	".xls":  "application/vnd.ms-excel",
	".xlsx": MIMETypeExcelSheet,
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".rtf":  "application/rtf",
}

// preferredExtension is the canonical extension per MIME type. The
// reverse of extensionToMIME is ambiguous (.jpg/.jpeg, .html/.htm), so
// preferences are listed explicitly.
var preferredExtension = map[string]string{
	MIMETypeTextPlain:       ".txt",
	MIMETypeTextHTML:        ".html",
	MIMETypeTextCSV:         ".csv",
	MIMETypeTextMarkdown:    ".md",
	MIMETypeApplicationJSON: ".json",
	MIMETypeApplicationXML:  ".xml",
	MIMETypeImageJPEG:       ".jpg",
	MIMETypeImagePNG:        ".png",
	MIMETypeImageGIF:        ".gif",
	MIMETypeImageTIFF:       ".tiff",
	MIMETypeImageBMP:        ".bmp",
	MIMETypeImageWebP:       ".webp",
	MIMETypeApplicationPDF:  ".pdf",
	MIMETypeApplicationZip:  ".zip",
	MIMETypeWordDocument:    ".docx",
	MIMETypeExcelSheet:      ".xlsx",
}

// GuessContentType tries to determine the content type of a file from its
// path and data. Extension wins over content sniffing: a .docx must not be
// reported as application/zip just because it is one underneath.
func GuessContentType(filePath string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if contentType, ok := extensionToMIME[ext]; ok {
		return contentType
	}

	if len(data) > 0 {
		return http.DetectContentType(data)
	}

	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}
	return MIMETypeOctetStream
}

// IsTextFile reports whether contentType names a textual format.
func IsTextFile(contentType string) bool {
	return strings.HasPrefix(contentType, "text/") ||
		contentType == MIMETypeApplicationJSON ||
		contentType == MIMETypeApplicationXML
}

// IsImageFile reports whether contentType names an image format.
func IsImageFile(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// IsPDFFile reports whether contentType is the PDF type.
func IsPDFFile(contentType string) bool {
	return contentType == MIMETypeApplicationPDF
}

// IsOfficeFile reports whether contentType names a Microsoft Office
// format, OOXML or legacy.
func IsOfficeFile(contentType string) bool {
	return strings.HasPrefix(contentType, "application/vnd.openxmlformats-officedocument.") ||
		strings.HasPrefix(contentType, "application/vnd.ms-")
}

// IsCompressedFile reports whether contentType names a compressed
// archive format.
func IsCompressedFile(contentType string) bool {
	switch contentType {
	case MIMETypeApplicationZip,
		"application/gzip",
		"application/x-tar",
		"application/x-7z-compressed",
		"application/x-rar-compressed":
		return true
	}
	return false
}

// GetFileExtensionForMIME returns a file extension for contentType,
// ".bin" when nothing better is known. Parameters such as charset are
// ignored.
func GetFileExtensionForMIME(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(contentType)

	if ext, ok := preferredExtension[contentType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
