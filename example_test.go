package uploadkit_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/gobeaver/uploadkit"
	"github.com/gobeaver/uploadkit/driver/memory"
)

func ExampleMountManager() {
	ctx := context.Background()

	// Route virtual prefixes to independent backends. Production setups
	// mount local.New for the inbox and s3.New for the vault; memory keeps
	// the example self-contained.
	mounts := uploadkit.NewMountManager()
	_ = mounts.Mount("/inbox", memory.New())
	_ = mounts.Mount("/vault", memory.New())

	_, _ = mounts.Write(ctx, "/inbox/scan-001.pdf", strings.NewReader("fresh scan"))
	_, _ = mounts.Write(ctx, "/vault/scan-000.pdf", strings.NewReader("archived scan"))

	inbox, _ := mounts.ReadAll(ctx, "/inbox/scan-001.pdf")
	vault, _ := mounts.ReadAll(ctx, "/vault/scan-000.pdf")

	fmt.Println(string(inbox))
	fmt.Println(string(vault))
	// Output:
	// fresh scan
	// archived scan
}

func ExampleMountManager_crossMountCopy() {
	ctx := context.Background()

	mounts := uploadkit.NewMountManager()
	_ = mounts.Mount("/inbox", memory.New())
	_ = mounts.Mount("/vault", memory.New())

	_, _ = mounts.Write(ctx, "/inbox/remit-118.pdf", strings.NewReader("remittance advice"))

	// Copy spans the two backends: read from one mount, write to the other.
	if err := mounts.Copy(ctx, "/inbox/remit-118.pdf", "/vault/remit-118.pdf"); err != nil {
		fmt.Println("archive failed:", err)
		return
	}

	archived, _ := mounts.ReadAll(ctx, "/vault/remit-118.pdf")
	fmt.Println(string(archived))
	// Output:
	// remittance advice
}

func ExampleListWithSelector() {
	ctx := context.Background()
	fs := memory.New()

	_, _ = fs.Write(ctx, "manifest.json", strings.NewReader("{}"))
	_, _ = fs.Write(ctx, "notes.txt", strings.NewReader("callback requested"))
	_, _ = fs.Write(ctx, "page-001.tif", strings.NewReader("tiff"))
	_, _ = fs.Write(ctx, "page-002.tif", strings.NewReader("tiff"))

	// Only the scanned pages, none of the sidecar files.
	files, _ := uploadkit.ListWithSelector(ctx, fs, "/", uploadkit.Glob("*.tif"), false)
	for _, f := range files {
		fmt.Println(f.Name)
	}
	// Output:
	// page-001.tif
	// page-002.tif
}

func ExampleAnd() {
	ctx := context.Background()
	fs := memory.New()

	_, _ = fs.Write(ctx, "bundle.pdf", strings.NewReader(strings.Repeat("x", 1200)))
	_, _ = fs.Write(ctx, "cover.pdf", strings.NewReader("%PDF-1.4 cover page"))
	_, _ = fs.Write(ctx, "cover.png", strings.NewReader("png"))

	// PDFs small enough to inline in a notification.
	selector := uploadkit.And(
		uploadkit.FuncSelector(func(f *uploadkit.FileInfo) bool { return f.Size < 100 }),
		uploadkit.Glob("*.pdf"),
	)

	files, _ := uploadkit.ListWithSelector(ctx, fs, "/", selector, false)
	for _, f := range files {
		fmt.Printf("%s (%d bytes)\n", f.Name, f.Size)
	}
	// Output:
	// cover.pdf (19 bytes)
}

func ExampleOr() {
	ctx := context.Background()
	fs := memory.New()

	_, _ = fs.Write(ctx, "export.csv", strings.NewReader("id,amount"))
	_, _ = fs.Write(ctx, "manifest.json", strings.NewReader("{}"))
	_, _ = fs.Write(ctx, "scan.png", strings.NewReader("png"))

	// Either of the two sidecar formats.
	selector := uploadkit.Or(uploadkit.Glob("*.csv"), uploadkit.Glob("*.json"))

	files, _ := uploadkit.ListWithSelector(ctx, fs, "/", selector, false)
	for _, f := range files {
		fmt.Println(f.Name)
	}
	// Output:
	// export.csv
	// manifest.json
}

func ExampleNot() {
	ctx := context.Background()
	fs := memory.New()

	_, _ = fs.Write(ctx, "audit.txt", strings.NewReader("audit trail"))
	_, _ = fs.Write(ctx, "ledger.txt", strings.NewReader("entries"))
	_, _ = fs.Write(ctx, "scratch.tmp", strings.NewReader("work in progress"))

	// Everything except scratch files.
	selector := uploadkit.Not(uploadkit.Glob("*.tmp"))

	files, _ := uploadkit.ListWithSelector(ctx, fs, "/", selector, false)
	for _, f := range files {
		fmt.Println(f.Name)
	}
	// Output:
	// audit.txt
	// ledger.txt
}

func ExampleFuncSelector() {
	ctx := context.Background()
	fs := memory.New()

	_, _ = fs.Write(ctx, "photo.jpg", strings.NewReader("jpg"))
	_, _ = fs.Write(ctx, "remit-2024.pdf", strings.NewReader("last year"))
	_, _ = fs.Write(ctx, "remit-2025.pdf", strings.NewReader("this year"))

	// Any predicate over FileInfo works as a selector.
	selector := uploadkit.FuncSelector(func(f *uploadkit.FileInfo) bool {
		return strings.HasPrefix(f.Name, "remit-")
	})

	files, _ := uploadkit.ListWithSelector(ctx, fs, "/", selector, false)
	for _, f := range files {
		fmt.Println(f.Name)
	}
	// Output:
	// remit-2024.pdf
	// remit-2025.pdf
}

func ExampleIsNotExist() {
	ctx := context.Background()
	fs := memory.New()

	_, err := fs.Read(ctx, "missing-scan.pdf")

	if uploadkit.IsNotExist(err) {
		fmt.Println("scan not ingested yet")
	}
	// Output:
	// scan not ingested yet
}

func ExampleNewReadOnlyFileSystem() {
	ctx := context.Background()
	fs := memory.New()

	_, _ = fs.Write(ctx, "retention.json", strings.NewReader(`{"retention": "7y"}`))

	// Hand consumers a handle that can never mutate the archive.
	readOnly := uploadkit.NewReadOnlyFileSystem(fs)

	policy, _ := readOnly.ReadAll(ctx, "retention.json")
	fmt.Println("policy:", string(policy))

	_, err := readOnly.Write(ctx, "note.txt", strings.NewReader("late addition"))
	if uploadkit.IsReadOnlyError(err) {
		fmt.Println("write rejected:", err)
	}
	// Output:
	// policy: {"retention": "7y"}
	// write rejected: write note.txt: filesystem is read-only
}

func ExampleCanChecksum() {
	ctx := context.Background()
	var fs uploadkit.FileSystem = memory.New()

	_, _ = fs.Write(ctx, "remit.txt", strings.NewReader("quarterly remittance"))

	// Checksum support is optional; probe for it before relying on it.
	if cs, ok := fs.(uploadkit.CanChecksum); ok {
		sha, _ := cs.Checksum(ctx, "remit.txt", uploadkit.ChecksumSHA256)
		fmt.Println("sha256:", sha)

		// Several digests in a single pass over the content.
		sums, _ := cs.Checksums(ctx, "remit.txt", []uploadkit.ChecksumAlgorithm{
			uploadkit.ChecksumMD5, uploadkit.ChecksumCRC32,
		})
		fmt.Println("md5:", sums[uploadkit.ChecksumMD5])
		fmt.Println("crc32:", sums[uploadkit.ChecksumCRC32])
	}
	// Output:
	// sha256: c8b898625845921c7eaeec91988d51346f633e82789ab67d008e1f71b68dffde
	// md5: 193c45a9c89f83e49517f11a6c7e72fa
	// crc32: 1e4e2c46
}

func ExampleNewCompositeChangeToken() {
	// A composite reports changed as soon as any member does, and supports
	// callbacks only when every member does.
	token1 := uploadkit.CancelledChangeToken{}
	token2 := uploadkit.NeverChangeToken{}

	composite := uploadkit.NewCompositeChangeToken(token1, token2)

	fmt.Println("Has changed:", composite.HasChanged())
	fmt.Println("Active callbacks:", composite.ActiveChangeCallbacks())
	// Output:
	// Has changed: true
	// Active callbacks: false
}

func ExampleOnChange() {
	ctx := context.Background()
	var fs uploadkit.FileSystem = memory.New()

	_, _ = fs.Write(ctx, "manifest.json", strings.NewReader(`{"version": 1}`))

	// OnChange re-arms after every fire, so the callback keeps running for
	// each later change to manifest.json.
	cancel := uploadkit.OnChange(
		func() (uploadkit.ChangeToken, error) {
			if watcher, ok := fs.(uploadkit.CanWatch); ok {
				return watcher.Watch(ctx, "manifest.json")
			}
			return uploadkit.NeverChangeToken{}, nil
		},
		func() {
			fmt.Println("manifest changed")
		},
	)
	defer cancel()

	fmt.Println("watching manifest.json")
	// Output:
	// watching manifest.json
}
