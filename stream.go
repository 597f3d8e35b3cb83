package uploadkit

import (
	"fmt"
	"io"
)

// SizeLimitReader restricts the number of bytes read and returns an error
// once the limit is exceeded. Used to enforce size ceilings on streams
// whose length is unknown upfront.
type SizeLimitReader struct {
	R     io.Reader
	Limit int64
	N     int64
}

func (l *SizeLimitReader) Read(p []byte) (n int, err error) {
	n, err = l.R.Read(p)
	l.N += int64(n)
	if l.N > l.Limit {
		return n, fmt.Errorf("%w: stream exceeds limit of %d bytes", ErrInvalidSize, l.Limit)
	}
	return n, err
}

// getStreamSize returns the number of bytes between the seeker's current
// position and the end of the stream. The position is restored afterwards.
func getStreamSize(seeker io.ReadSeeker) (int64, error) {
	current, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	_, err = seeker.Seek(current, io.SeekStart)
	if err != nil {
		return 0, err
	}
	return end - current, nil
}
