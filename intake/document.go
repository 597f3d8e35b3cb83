package intake

import (
	"path"
	"time"

	"github.com/gobeaver/uploadkit/history"
	"github.com/gobeaver/uploadkit/pipeline"
)

// Document is the intake view of a submitted file.
type Document struct {
	// ID is the intake-assigned identifier.
	ID string

	// OriginalName is the file name the document was submitted under.
	OriginalName string

	// StoredName is the collision-free base name the document is stored
	// under: the ID joined to the accepted (possibly sanitized) name.
	StoredName string

	// Path is the document's location in the service's virtual namespace,
	// under /staging until processed, under /archive afterwards.
	Path string

	// Size is the stored size in bytes.
	Size int64

	// MIMEType is the declared MIME type the document was accepted under.
	MIMEType string

	// Checksum is the content checksum computed at submission. Empty when
	// the staging driver cannot compute one.
	Checksum string

	// Status is the document's lifecycle status.
	Status pipeline.Status

	// Error holds the failure message for failed documents, empty otherwise.
	Error string

	// SubmittedAt is when the document entered staging.
	SubmittedAt time.Time

	// CompletedAt is when processing reached a terminal status. Zero until
	// then.
	CompletedAt time.Time
}

// docFromRecord converts a history record to the document view.
func docFromRecord(rec *history.Record) *Document {
	doc := &Document{
		ID:           rec.ID,
		OriginalName: rec.Name,
		StoredName:   path.Base(rec.StoredPath),
		Path:         rec.StoredPath,
		Size:         rec.Size,
		MIMEType:     rec.MIMEType,
		Checksum:     rec.Checksum,
		Status:       pipeline.Status(rec.Status),
		Error:        rec.Error,
		SubmittedAt:  rec.CreatedAt,
	}
	switch doc.Status {
	case pipeline.StatusReady, pipeline.StatusFailed:
		doc.CompletedAt = rec.UpdatedAt
	}
	return doc
}
