// Package uploadkit is a document intake toolkit: validated uploads
// over pluggable storage backends, with encryption, caching, and
// virtual path mounting.
//
// Read-only access ([FileReader]) and write access ([FileWriter]) are
// separate interfaces, combined in [FileSystem], so a function that
// only needs to read can say so in its signature.
//
// # Storage Backends
//
// Three backends ship with the module:
//
//   - Local filesystem (github.com/gobeaver/uploadkit/driver/local)
//   - Amazon S3 (github.com/gobeaver/uploadkit/driver/s3)
//   - In-memory (github.com/gobeaver/uploadkit/driver/memory)
//
// Each driver registers itself under a name ("local", "s3", "memory") so
// backends can be selected from configuration alone.
//
// # Reading and Writing
//
//	import "github.com/gobeaver/uploadkit/driver/local"
//
//	store, err := local.New("./storage")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//
//	// The result reports the path and size actually stored.
//	result, err := store.Write(ctx, "inbox/remit-0042.pdf", file)
//
//	data, err := store.ReadAll(ctx, "inbox/remit-0042.pdf")
//	exists, err := store.FileExists(ctx, "inbox/remit-0042.pdf")
//	entries, err := store.ListContents(ctx, "inbox", false)
//
// # Validation
//
// The filevalidator package screens uploads before they reach storage:
// size limits, MIME type allow-lists, extension deny-lists, file name
// sanitization, and content sniffing that catches files whose bytes do
// not match their declared type. Wrap any backend in a
// [ValidatedFileSystem] and every Write is screened:
//
//	v := filevalidator.ForDocuments().Build()
//	store = uploadkit.NewValidatedFileSystem(store, v)
//
//	result, err := store.Write(ctx, "inbox/Remit [Final].pdf", file)
//	// result.Path reflects the sanitized name the file was stored under
//
// Rejections come back as a [PathError] wrapping a
// [filevalidator.ValidationError], so callers can distinguish an
// oversized file from a spoofed MIME type.
//
// # Intake Flow
//
// The intake package ties staging, validation, checksums, processing,
// and history into a document submission service:
//
//	svc, err := intake.NewService(intake.Config{
//	    Staging: stagingStore,
//	    Archive: archiveStore,
//	    History: history.NewMemoryRepository(1000),
//	})
//
//	doc, err := svc.SubmitAndProcess(ctx, filevalidator.NewCandidate(
//	    "report.pdf", filevalidator.MIMETypePDF, content))
//
// # Capabilities
//
// Beyond [FileSystem], drivers advertise extras through optional
// interfaces, discovered by type assertion:
//
//	if signer, ok := store.(uploadkit.CanSignURL); ok {
//	    url, err := signer.SignedURL(ctx, "archive/report.pdf", 15*time.Minute)
//	}
//
//	if cs, ok := store.(uploadkit.CanChecksum); ok {
//	    digest, err := cs.Checksum(ctx, "archive/report.pdf", uploadkit.ChecksumSHA256)
//	}
//
// [CanCopy] and [CanMove] mark native server-side copy and rename;
// [CanWatch] reports changes to files matching a glob pattern.
// [MountManager.Copy] and [FileChecksum] use the native capability when
// present and fall back to streaming when not.
//
// # Mounts
//
// A [MountManager] joins several backends under one path namespace:
//
//	mounts := uploadkit.NewMountManager()
//	mounts.Mount("/staging", localStore)
//	mounts.Mount("/archive", s3Store)
//
//	// Paths route to the backend owning the mount.
//	mounts.Write(ctx, "/staging/upload.pdf", reader)
//	mounts.Read(ctx, "/archive/2026/remit-0042.pdf")
//
//	// Cross-mount copies stream between backends when needed.
//	mounts.Copy(ctx, "/staging/upload.pdf", "/archive/2026/upload.pdf")
//
// # Decorators
//
// Cross-cutting concerns stack as decorators around any backend:
//
//	readOnly := uploadkit.NewReadOnlyFileSystem(store)
//
//	cached := uploadkit.NewCachingFileSystem(store, uploadkit.NewMemoryCache(),
//	    uploadkit.WithCacheTTL(5*time.Minute),
//	)
//
//	encrypted, err := uploadkit.NewEncryptedFS(store, encryptionKey)
//
//	validated := uploadkit.NewValidatedFileSystem(store, validator)
//
// Order matters: [New] stacks encryption below validation so rejected
// content is never encrypted and written:
//
//	store, _ = uploadkit.NewEncryptedFS(store, key)
//	store = uploadkit.NewValidatedFileSystem(store, validator)
//	store = uploadkit.NewCachingFileSystem(store, uploadkit.NewMemoryCache())
//
// # Selecting Files
//
// A [FileSelector] filters listings, and composes:
//
//	files, err := uploadkit.ListWithSelector(ctx, store, "inbox", uploadkit.Glob("*.pdf"), true)
//
//	small := uploadkit.And(
//	    uploadkit.Glob("*.tiff"),
//	    uploadkit.FuncSelector(func(f *uploadkit.FileInfo) bool {
//	        return f.Size < 10*1024*1024
//	    }),
//	)
//	files, err = uploadkit.ListWithSelector(ctx, store, "scans", small, true)
//
// # Errors
//
// Failures carry a [PathError] wrapping a sentinel, with helpers for
// the common questions:
//
//	_, err := store.Read(ctx, "inbox/missing.pdf")
//	if uploadkit.IsNotExist(err) {
//	    // nothing stored under that path
//	}
//
//	var pathErr *uploadkit.PathError
//	if errors.As(err, &pathErr) {
//	    log.Printf("%s failed for %s", pathErr.Op, pathErr.Path)
//	}
//
// # Configuration
//
// Configuration comes from UPLOADKIT_-prefixed environment variables or
// a [Config] value:
//
//	cfg := uploadkit.Config{
//	    Driver:      "s3",
//	    S3Bucket:    "documents",
//	    S3Region:    "us-west-2",
//	    MaxFileSize: 20 * 1024 * 1024,
//	}
//	store, err := uploadkit.New(&cfg)
package uploadkit
