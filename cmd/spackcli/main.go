// Command spackcli builds and inspects shader pack archives.
package main

import (
	"flag"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/devblok/raymarch/utility/spack"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/mmap"
)

func init() {
	u, err := user.Current()
	if err != nil {
		currentUserName = "unknown"
		return
	}
	currentUserName = u.Name
}

var (
	currentUserName string
	author          = flag.String("author", currentUserName, "Set the author of the archive when packing")
	version         = flag.Int64("version", 1, "Archive version number to create it with")
	pack            = flag.String("c", "", "Pack all .spv files under the given directory")
	list            = flag.String("l", "", "List the entries of the given archive")
	dstFile         = flag.String("f", "out.spack", "Destination file")
)

func main() {
	flag.Parse()

	switch {
	case *pack != "" && *list != "":
		log.Fatal("only one operation at a time")
	case *pack != "":
		if err := packShaders(*pack); err != nil {
			log.Fatal(err)
		}
	case *list != "":
		if err := listEntries(*list); err != nil {
			log.Fatal(err)
		}
	default:
		flag.PrintDefaults()
	}
}

func packShaders(dir string) error {
	builder := spack.NewBuilder(spack.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})

	var count int
	if err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".spv") {
			return nil
		}

		data, err := ioutil.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		count++
		return builder.Add(filepath.ToSlash(rel), data)
	}); err != nil {
		return err
	}

	out, err := os.Create(*dstFile)
	if err != nil {
		return err
	}
	defer out.Close()

	written, err := builder.WriteTo(out)
	if err != nil {
		return err
	}
	log.Infof("packed %d shaders, %d bytes", count, written)
	return nil
}

func listEntries(path string) error {
	r, err := mmap.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	ar, err := spack.Open(r)
	if err != nil {
		return err
	}

	header := ar.Header()
	log.Infof("author %s, version %d, created %s",
		header.Author, header.Version, time.Unix(header.DateCreated, 0).Format(time.RFC3339))
	for _, entry := range header.Index {
		log.Infof("%s (%d bytes, %d compressed)", entry.Name, entry.Size, entry.CompressedSize)
	}
	return nil
}
