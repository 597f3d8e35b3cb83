package filevalidator

import (
	"bytes"
	"io"
	"mime/multipart"
)

// Candidate describes a file submitted for validation before any acceptance
// decision. The caller owns all fields; nothing is mutated.
type Candidate struct {
	// Name is the submitted file name. It may contain arbitrary characters,
	// including path-unsafe ones.
	Name string

	// MIMEType is the MIME type declared by the submitter. It is untrusted:
	// the content signature check exists precisely because this field lies.
	MIMEType string

	// Size is the candidate's size in bytes.
	Size int64

	// Content is an optional lazily-readable byte source. Seekable sources
	// are restored to their prior position after signature sniffing;
	// non-seekable sources have consumed header bytes stitched back into the
	// sanitized candidate's Content.
	Content io.Reader
}

// NewCandidate builds a candidate around an in-memory byte slice. The
// returned candidate's Content is seekable, so it can be validated any
// number of times.
func NewCandidate(name, mimeType string, content []byte) Candidate {
	return Candidate{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(content)),
		Content:  bytes.NewReader(content),
	}
}

// CandidateFromMultipart builds a candidate from an HTTP form upload, taking
// the name, declared type, and size from the part header and opening the part
// as the content source. The opened part is seekable, so the candidate can be
// validated and then stored without re-opening; the caller closes it
// (Content satisfies io.Closer) when done with both.
func CandidateFromMultipart(fh *multipart.FileHeader) (Candidate, error) {
	f, err := fh.Open()
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Content:  f,
	}, nil
}

// WithName returns a copy of the candidate carrying a different name but the
// same declared type, size, and content source.
func (c Candidate) WithName(name string) Candidate {
	c.Name = name
	return c
}
