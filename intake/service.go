// Package intake coordinates the document intake flow: validated
// submission into a staging area, simulated pipeline processing, archival
// of accepted documents, and retrieval. Staging and archive are plain
// uploadkit filesystems mounted into one virtual namespace, so any driver
// combination works: local staging with S3 archive, memory for tests.
package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gobeaver/uploadkit"
	"github.com/gobeaver/uploadkit/filevalidator"
	"github.com/gobeaver/uploadkit/history"
	"github.com/gobeaver/uploadkit/pipeline"
	"github.com/gobeaver/uploadkit/placeholder"
)

const (
	stagingMount = "/staging"
	archiveMount = "/archive"

	// logsDir holds processing reports inside the archive.
	logsDir = "logs"

	// defaultHistoryLimit bounds the default in-memory history.
	defaultHistoryLimit = 1000

	// sniffLen is how much of a non-seekable submission is buffered for
	// validation, matching ValidatedFileSystem.
	sniffLen = 512
)

var (
	// ErrNotProcessable is returned when processing is requested for a
	// document that is not awaiting processing.
	ErrNotProcessable = errors.New("intake: document is not awaiting processing")

	// ErrNotReady is returned when a download is requested for a document
	// that has not finished processing.
	ErrNotReady = errors.New("intake: document is not ready")
)

// Config assembles a Service. Staging and Archive are required; every
// other field has a working default.
type Config struct {
	// Staging receives validated submissions awaiting processing.
	Staging uploadkit.FileSystem

	// Archive receives processed documents and their artifacts.
	Archive uploadkit.FileSystem

	// Validator guards submissions. Defaults to the standard intake
	// constraints.
	Validator filevalidator.Validator

	// History records every submission. Defaults to a bounded in-memory
	// repository.
	History history.Repository

	// Runner executes the processing pipeline. Defaults to the standard
	// stage chain.
	Runner *pipeline.Runner

	// Logger receives intake events. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Service is the document intake coordinator. It is safe for concurrent
// use; submissions are independent.
type Service struct {
	mounts    *uploadkit.MountManager
	view      *uploadkit.CachingFileSystem
	validator filevalidator.Validator
	history   history.Repository
	runner    *pipeline.Runner
	logger    *slog.Logger
}

// NewService creates an intake service over the given staging and archive
// filesystems. They are mounted at /staging and /archive in the service's
// virtual namespace, and every document path is reported in that
// namespace.
func NewService(cfg Config) (*Service, error) {
	if cfg.Staging == nil {
		return nil, errors.New("intake: staging filesystem is required")
	}
	if cfg.Archive == nil {
		return nil, errors.New("intake: archive filesystem is required")
	}

	mounts := uploadkit.NewMountManager()
	if err := mounts.Mount(stagingMount, cfg.Staging); err != nil {
		return nil, fmt.Errorf("mount staging: %w", err)
	}
	if err := mounts.Mount(archiveMount, cfg.Archive); err != nil {
		return nil, fmt.Errorf("mount archive: %w", err)
	}

	s := &Service{
		mounts:    mounts,
		validator: cfg.Validator,
		history:   cfg.History,
		runner:    cfg.Runner,
		logger:    cfg.Logger,
	}
	if s.validator == nil {
		s.validator = filevalidator.NewDefault()
	}
	if s.history == nil {
		s.history = history.NewMemoryRepository(defaultHistoryLimit)
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	// Reads go through a cached read-only view of the namespace. Only
	// metadata is cached, never content.
	s.view = uploadkit.NewCachingFileSystem(
		uploadkit.NewReadOnlyFileSystem(mounts),
		uploadkit.NewMemoryCache(),
		uploadkit.WithCacheTTL(time.Minute),
	)

	return s, nil
}

// Submit validates the candidate and stores it in the staging area under a
// collision-free name: the new document ID joined to the accepted file
// name. The document enters history with status uploaded.
//
// Validation failures wrap a *filevalidator.ValidationError. The submitted
// name is never used for storage as-is; when validation sanitizes it, the
// sanitized name is used.
func (s *Service) Submit(ctx context.Context, candidate filevalidator.Candidate) (*Document, error) {
	originalName := candidate.Name

	candidate, content, err := s.validate(ctx, candidate)
	if err != nil {
		s.logger.Warn("submission rejected",
			"name", originalName,
			"error", err,
		)
		return nil, err
	}

	id := uuid.NewString()
	storedName := fmt.Sprintf("%s_%s", id, candidate.Name)
	stagingPath := path.Join(stagingMount, storedName)

	written, err := s.mounts.Write(ctx, stagingPath, content,
		uploadkit.WithContentType(candidate.MIMEType),
	)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", candidate.Name, err)
	}

	checksum, err := s.mounts.Checksum(ctx, written.Path, uploadkit.ChecksumXXHash)
	if err != nil {
		if !uploadkit.IsNotSupported(err) {
			s.logger.Warn("checksum failed", "id", id, "error", err)
		}
		checksum = ""
	}

	now := time.Now().UTC()
	rec := &history.Record{
		ID:         id,
		Name:       originalName,
		StoredPath: written.Path,
		Size:       written.Size,
		MIMEType:   candidate.MIMEType,
		Checksum:   checksum,
		Status:     string(pipeline.StatusUploaded),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.history.Save(ctx, rec); err != nil {
		// Do not leave an untracked file behind.
		_ = s.mounts.Delete(ctx, written.Path)
		return nil, fmt.Errorf("record %q: %w", candidate.Name, err)
	}

	s.logger.Info("document submitted",
		"id", id,
		"name", candidate.Name,
		"size", written.Size,
		"path", written.Path,
	)

	return docFromRecord(rec), nil
}

// validate runs the candidate through the validator and returns the
// accepted candidate together with the content stream to store. The
// returned candidate's Name is the accepted one: sanitized when the
// validator rewrote it, the submitted name otherwise.
func (s *Service) validate(ctx context.Context, candidate filevalidator.Candidate) (filevalidator.Candidate, io.Reader, error) {
	if candidate.Content == nil {
		return candidate, nil, fmt.Errorf("submit %q: no content", candidate.Name)
	}

	if seeker, ok := candidate.Content.(io.ReadSeeker); ok {
		// Seekable source: validate against the real size; the validator
		// restores the position.
		size, err := streamSize(seeker)
		if err != nil {
			return candidate, nil, fmt.Errorf("submit %q: %w", candidate.Name, err)
		}
		candidate.Size = size

		result := s.validator.ValidateWithContext(ctx, candidate)
		if !result.Valid {
			return candidate, nil, fmt.Errorf("submit %q: %w", candidate.Name, result.Err)
		}
		if result.Renamed() {
			candidate.Name = result.Sanitized.Name
		}
		return candidate, candidate.Content, nil
	}

	// Non-seekable source: buffer the head for the content checks, then
	// stitch it back in front of the remaining stream, the same way
	// ValidatedFileSystem handles streamed writes.
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(candidate.Content, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return candidate, nil, fmt.Errorf("submit %q: %w", candidate.Name, err)
	}
	header = header[:n]

	probe := candidate
	probe.Content = bytes.NewReader(header)
	if probe.Size == 0 {
		probe.Size = int64(n)
	}

	result := s.validator.ValidateWithContext(ctx, probe)
	if !result.Valid {
		return candidate, nil, fmt.Errorf("submit %q: %w", candidate.Name, result.Err)
	}
	if result.Renamed() {
		candidate.Name = result.Sanitized.Name
	}

	content := io.Reader(io.MultiReader(bytes.NewReader(header), candidate.Content))
	if limit := s.validator.GetConstraints().MaxFileSize; limit > 0 {
		// The size ceiling could not be checked upfront for the unread
		// remainder, so enforce it while staging drains the stream.
		content = &uploadkit.SizeLimitReader{R: content, Limit: limit}
	}
	return candidate, content, nil
}

// streamSize returns the number of bytes between the seeker's current
// position and the end, restoring the position afterwards.
func streamSize(seeker io.ReadSeeker) (int64, error) {
	current, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := seeker.Seek(current, io.SeekStart); err != nil {
		return 0, err
	}
	return end - current, nil
}

// Process runs the pipeline for an uploaded document. On success the file
// moves from staging to the archive, a processing report is written next
// to it, and the document becomes ready. On failure - a failed stage or a
// cancelled context - the file stays in staging and the document becomes
// failed, with the cause recorded in history.
//
// Only documents with status uploaded can be processed; anything else
// returns ErrNotProcessable.
func (s *Service) Process(ctx context.Context, id string) (*Document, error) {
	rec, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", id, err)
	}
	if rec.Status != string(pipeline.StatusUploaded) {
		return nil, fmt.Errorf("document %s has status %q: %w", id, rec.Status, ErrNotProcessable)
	}

	if err := s.history.UpdateStatus(ctx, id, string(pipeline.StatusProcessing), ""); err != nil {
		return nil, fmt.Errorf("process %s: %w", id, err)
	}

	storedName := path.Base(rec.StoredPath)
	results, runErr := s.runner.Run(ctx, id, storedName)
	if runErr != nil {
		s.markFailed(ctx, id, runErr)
		return nil, fmt.Errorf("process %s: %w", id, runErr)
	}

	archivePath := path.Join(archiveMount, storedName)
	if err := s.mounts.Move(ctx, rec.StoredPath, archivePath); err != nil {
		s.markFailed(ctx, id, fmt.Errorf("archive: %w", err))
		return nil, fmt.Errorf("process %s: archive: %w", id, err)
	}

	// The report is an artifact, not the document; losing it is not fatal.
	logPath := path.Join(archiveMount, logsDir, storedName+".log")
	report := placeholder.ProcessingLog(storedName, results)
	if _, err := s.mounts.Write(ctx, logPath, bytes.NewReader(report),
		uploadkit.WithContentType("text/plain"),
		uploadkit.WithOverwrite(true),
	); err != nil {
		s.logger.Warn("processing report not written", "id", id, "error", err)
	}

	rec.StoredPath = archivePath
	rec.Status = string(pipeline.StatusReady)
	rec.Error = ""
	rec.UpdatedAt = time.Now().UTC()
	if err := s.history.Save(context.WithoutCancel(ctx), rec); err != nil {
		return nil, fmt.Errorf("process %s: record: %w", id, err)
	}

	s.logger.Info("document ready",
		"id", id,
		"name", storedName,
		"path", archivePath,
		"stages", len(results),
	)

	return docFromRecord(rec), nil
}

// markFailed writes the terminal failed status. The write must survive the
// caller's cancellation, which is itself a common failure cause.
func (s *Service) markFailed(ctx context.Context, id string, cause error) {
	err := s.history.UpdateStatus(context.WithoutCancel(ctx), id,
		string(pipeline.StatusFailed), cause.Error())
	if err != nil {
		s.logger.Error("failed status not recorded", "id", id, "error", err)
	}
	s.logger.Error("processing failed", "id", id, "error", cause)
}

// SubmitAndProcess submits a candidate and immediately runs the pipeline
// for it.
func (s *Service) SubmitAndProcess(ctx context.Context, candidate filevalidator.Candidate) (*Document, error) {
	doc, err := s.Submit(ctx, candidate)
	if err != nil {
		return nil, err
	}
	return s.Process(ctx, doc.ID)
}

// Outcome is the per-candidate result of a batch submission.
type Outcome struct {
	Document *Document
	Err      error
}

// SubmitAll submits every candidate concurrently. The returned slice is
// indexed by the input position, so outcomes stay attributable regardless
// of completion order. Failed candidates do not affect the others.
func (s *Service) SubmitAll(ctx context.Context, candidates []filevalidator.Candidate) []Outcome {
	outcomes := make([]Outcome, len(candidates))

	var wg sync.WaitGroup
	for i, candidate := range candidates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := s.Submit(ctx, candidate)
			outcomes[i] = Outcome{Document: doc, Err: err}
		}()
	}
	wg.Wait()

	return outcomes
}

// Get returns the document with the given ID, or history.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	rec, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return docFromRecord(rec), nil
}

// List returns documents newest first. A limit <= 0 returns all.
func (s *Service) List(ctx context.Context, limit int) ([]*Document, error) {
	records, err := s.history.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	docs := make([]*Document, len(records))
	for i, rec := range records {
		docs[i] = docFromRecord(rec)
	}
	return docs, nil
}

// Download opens a ready document for reading from the archive. The caller
// must close the reader. Documents that have not finished processing
// return ErrNotReady.
func (s *Service) Download(ctx context.Context, id string) (*Document, io.ReadCloser, error) {
	rec, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if rec.Status != string(pipeline.StatusReady) {
		return nil, nil, fmt.Errorf("document %s has status %q: %w", id, rec.Status, ErrNotReady)
	}

	reader, err := s.view.Read(ctx, rec.StoredPath)
	if err != nil {
		return nil, nil, fmt.Errorf("download %s: %w", id, err)
	}
	return docFromRecord(rec), reader, nil
}
