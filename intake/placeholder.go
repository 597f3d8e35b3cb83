package intake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/gobeaver/uploadkit"
	"github.com/gobeaver/uploadkit/pipeline"
	"github.com/gobeaver/uploadkit/placeholder"
)

// PlaceholderKind selects which stand-in artifact Placeholder serves.
type PlaceholderKind string

const (
	// PlaceholderPDF is a one-page sample PDF.
	PlaceholderPDF PlaceholderKind = "pdf"

	// PlaceholderDOCX is a minimal sample DOCX.
	PlaceholderDOCX PlaceholderKind = "docx"

	// PlaceholderLog is a sample processing report.
	PlaceholderLog PlaceholderKind = "log"
)

// placeholderDir holds generated placeholders inside the archive.
const placeholderDir = "placeholders"

// Placeholder returns a generated stand-in artifact, creating it in the
// archive on first use. Existence checks run through the cached view, so
// repeat calls skip the backend. The caller must close the reader.
func (s *Service) Placeholder(ctx context.Context, kind PlaceholderKind) (string, io.ReadCloser, error) {
	name, err := placeholderName(kind)
	if err != nil {
		return "", nil, err
	}
	artifactPath := path.Join(archiveMount, placeholderDir, name)

	exists, err := s.view.FileExists(ctx, artifactPath)
	if err != nil {
		return "", nil, fmt.Errorf("placeholder %s: %w", kind, err)
	}
	if !exists {
		data, contentType, err := generatePlaceholder(kind)
		if err != nil {
			return "", nil, fmt.Errorf("placeholder %s: %w", kind, err)
		}
		// Overwrite in case a stale cache entry hid an earlier write; the
		// generated content is equivalent either way.
		if _, err := s.mounts.Write(ctx, artifactPath, bytes.NewReader(data),
			uploadkit.WithContentType(contentType),
			uploadkit.WithOverwrite(true),
		); err != nil {
			return "", nil, fmt.Errorf("placeholder %s: %w", kind, err)
		}
		s.logger.Info("placeholder generated", "kind", kind, "path", artifactPath)
	}

	reader, err := s.view.Read(ctx, artifactPath)
	if err != nil {
		return "", nil, fmt.Errorf("placeholder %s: %w", kind, err)
	}
	return artifactPath, reader, nil
}

// placeholderName maps a kind to its archive file name.
func placeholderName(kind PlaceholderKind) (string, error) {
	switch kind {
	case PlaceholderPDF:
		return "sample.pdf", nil
	case PlaceholderDOCX:
		return "sample.docx", nil
	case PlaceholderLog:
		return "sample.log", nil
	default:
		return "", fmt.Errorf("unknown placeholder kind %q", kind)
	}
}

// generatePlaceholder renders the artifact for a kind.
func generatePlaceholder(kind PlaceholderKind) ([]byte, string, error) {
	switch kind {
	case PlaceholderPDF:
		return placeholder.PDF("Sample Document"), "application/pdf", nil
	case PlaceholderDOCX:
		data, err := placeholder.DOCX("Sample Document",
			"This document stands in for a converted original.",
			"Replace it with real conversion output when available.",
		)
		if err != nil {
			return nil, "", err
		}
		return data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil
	case PlaceholderLog:
		results := make([]pipeline.StageResult, 0, 4)
		started := time.Now().UTC()
		for _, stage := range pipeline.DefaultStages() {
			results = append(results, pipeline.StageResult{
				Stage:    stage.Name,
				Started:  started,
				Duration: stage.Delay,
			})
			started = started.Add(stage.Delay)
		}
		return placeholder.ProcessingLog("sample.pdf", results), "text/plain", nil
	default:
		return nil, "", fmt.Errorf("unknown placeholder kind %q", kind)
	}
}
