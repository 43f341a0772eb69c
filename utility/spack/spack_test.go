package spack_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devblok/raymarch/utility/spack"
	"golang.org/x/exp/mmap"
)

var (
	testBlob1 = []byte("idunvovkjnreovmegihjbrqlkmfrjnb")
	testBlob2 = []byte("idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb")
)

func buildTestArchive(t *testing.T) []byte {
	t.Helper()
	builder := spack.NewBuilder(spack.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})

	if err := builder.Add("shaders/test1.spv", testBlob1); err != nil {
		t.Fatal(err)
	}
	if err := builder.Add("shaders/test2.spv", testBlob2); err != nil {
		t.Fatal(err)
	}

	buf := bytes.NewBuffer([]byte{})
	written, err := builder.WriteTo(buf)
	if err != nil {
		t.Fatal(err)
	}
	if written != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, buffer holds %d", written, buf.Len())
	}
	return buf.Bytes()
}

func TestCreateAndReadAll(t *testing.T) {
	data := buildTestArchive(t)

	ar, err := spack.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	got, err := ar.ReadAll("shaders/test1.spv")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, testBlob1) {
		t.Error("first blob does not match after round trip")
	}

	got, err = ar.ReadAll("shaders/test2.spv")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, testBlob2) {
		t.Error("second blob does not match after round trip")
	}
}

func TestCreateAndStream(t *testing.T) {
	data := buildTestArchive(t)

	ar, err := spack.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}

	f, err := ar.Open("shaders/test1.spv")
	if err != nil {
		t.Fatal(err)
	}
	if f.Size() != int64(len(testBlob1)) {
		t.Errorf("entry size %d, want %d", f.Size(), len(testBlob1))
	}

	result := make([]byte, len(testBlob1))
	if _, err := f.Read(result); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(result, testBlob1) {
		t.Error("streamed blob does not match")
	}
}

func TestOpenMmap(t *testing.T) {
	data := buildTestArchive(t)

	dir, err := ioutil.TempDir("", "spack")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "test.spack")
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	r, err := mmap.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ar, err := spack.Open(r)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ar.ReadAll("shaders/test2.spv")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, testBlob2) {
		t.Error("mmap backed read does not match")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := spack.Open(strings.NewReader("KAR\x00somethingelse entirely")); err != spack.ErrFileFormat {
		t.Errorf("expected ErrFileFormat, got %v", err)
	}
}

func TestMissingEntry(t *testing.T) {
	data := buildTestArchive(t)
	ar, err := spack.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ar.Open("no/such.spv"); err != spack.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNames(t *testing.T) {
	data := buildTestArchive(t)
	ar, err := spack.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	names := ar.Names()
	if len(names) != 2 || names[0] != "shaders/test1.spv" || names[1] != "shaders/test2.spv" {
		t.Errorf("unexpected names: %v", names)
	}
}
