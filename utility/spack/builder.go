package spack

import (
	"bytes"
	"io"
	"sync"

	"github.com/pierrec/lz4"
)

// NewBuilder creates a new Builder. Do not fill the Index in the
// header, it is computed when writing.
func NewBuilder(header Header) *Builder {
	return &Builder{
		header: header,
	}
}

type pendingFile struct {
	name       string
	size       int64
	compressed []byte
}

// Builder assembles an archive. Archives are versioned and cannot be
// appended to, building a new one is the only way to change content.
// Add compresses eagerly so WriteTo only concatenates.
type Builder struct {
	io.WriterTo

	header Header

	mutex sync.Mutex
	files []pendingFile
}

// Add appends data to the builder with a given name. Blocks until
// lz4 finishes compression. Safe to use concurrently from different
// goroutines.
func (b *Builder) Add(name string, data []byte) error {
	var compressed bytes.Buffer
	writer := lz4.NewWriter(&compressed)
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files = append(b.files, pendingFile{
		name:       name,
		size:       int64(len(data)),
		compressed: compressed.Bytes(),
	})
	return nil
}

// WriteTo bundles everything added so far into a ready to use
// archive. The header is written into a reserved slot sized by
// MaxExpectedSize, data begins right after it.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	header.Index = nil
	for _, f := range b.files {
		header.Index = append(header.Index, IndexEntry{
			Name:           f.name,
			Size:           f.size,
			CompressedSize: int64(len(f.compressed)),
		})
	}

	headerSpace := header.MaxExpectedSize()
	dataStart := int64(MagicLength + HeaderSizeNumberLength + headerSpace)

	offset := dataStart
	for i := range header.Index {
		header.Index[i].Offset = offset
		offset += header.Index[i].CompressedSize
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, err
	}
	if int64(len(rawHeader)) > headerSpace {
		return 0, ErrFileFormat
	}

	var written int64
	for _, chunk := range [][]byte{
		magic[:],
		int64ToBinary(int64(len(rawHeader))),
		rawHeader,
		make([]byte, headerSpace-int64(len(rawHeader))),
	} {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	for _, f := range b.files {
		n, err := w.Write(f.compressed)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	b.files = b.files[:0]
	return written, nil
}
