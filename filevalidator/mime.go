package filevalidator

import "strings"

// MIME types the intake pipeline deals with by name.
const (
	MIMETypePDF  = "application/pdf"
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
	MIMETypeGIF  = "image/gif"
	MIMETypeWebP = "image/webp"
	MIMETypeBMP  = "image/bmp"
	MIMETypeTIFF = "image/tiff"
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypeText = "text/plain"
	MIMETypeCSV  = "text/csv"
)

// MediaTypeGroup is a family alias accepted anywhere a specific MIME
// type is, such as "image/*" in an allowlist.
type MediaTypeGroup string

const (
	AllowAllImages    MediaTypeGroup = "image/*"
	AllowAllDocuments MediaTypeGroup = "document/*"
	AllowAllText      MediaTypeGroup = "text/*"
	AllowAll          MediaTypeGroup = "*/*"
)

// mediaTypeGroups fixes each alias's members. AllowAll is deliberately
// absent: it passes through ExpandAcceptedTypes as a wildcard.
var mediaTypeGroups = map[MediaTypeGroup][]string{
	AllowAllImages: {
		MIMETypeJPEG,
		MIMETypePNG,
		MIMETypeGIF,
		MIMETypeWebP,
		MIMETypeTIFF,
		MIMETypeBMP,
	},
	AllowAllDocuments: {
		MIMETypePDF,
		"application/msword",
		MIMETypeDOCX,
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		MIMETypeText,
		MIMETypeCSV,
		"text/rtf",
		"application/rtf",
	},
	AllowAllText: {
		MIMETypeText,
		"text/html",
		"text/css",
		MIMETypeCSV,
		"text/xml",
		"text/markdown",
	},
}

var extensionToMimeType = map[string]string{
	".jpg":  MIMETypeJPEG,
	".jpeg": MIMETypeJPEG,
	".png":  MIMETypePNG,
	".gif":  MIMETypeGIF,
	".webp": MIMETypeWebP,
	".tiff": MIMETypeTIFF,
	".tif":  MIMETypeTIFF,
	".bmp":  MIMETypeBMP,

	".pdf":  MIMETypePDF,
	".doc":  "application/msword",
	".docx": MIMETypeDOCX,
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  MIMETypeText,
	".csv":  MIMETypeCSV,
	".rtf":  "text/rtf",

	".html":     "text/html",
	".htm":      "text/html",
	".css":      "text/css",
	".xml":      "text/xml",
	".md":       "text/markdown",
	".markdown": "text/markdown",
}

// MIMETypeForExtension maps a file extension, case-insensitively, to
// its MIME type. Unrecognized extensions map to "".
func MIMETypeForExtension(ext string) string {
	return extensionToMimeType[strings.ToLower(ext)]
}

// ExpandAcceptedTypes replaces group aliases with their member types.
// Entries that are not groups pass through unchanged, so callers can
// mix "image/*" with specific types in one list.
func ExpandAcceptedTypes(acceptedTypes []string) []string {
	expanded := make([]string, 0, len(acceptedTypes))
	for _, accept := range acceptedTypes {
		if members, ok := mediaTypeGroups[MediaTypeGroup(accept)]; ok {
			expanded = append(expanded, members...)
			continue
		}
		expanded = append(expanded, accept)
	}
	return expanded
}
