// Command mkfs formats a fresh disk image and, optionally, seeds it
// from a directory tree on the host. There is no bootloader or kernel
// image to splice in here -- this module boots as an ordinary hosted
// process, not bare metal -- so, unlike the teacher's mkfs, the image
// this produces is pure file-system content sized in sectors.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/laonahongchen/PintOS-SJTU/fs"
	"github.com/laonahongchen/PintOS-SJTU/ufs"
	"github.com/laonahongchen/PintOS-SJTU/ustr"
)

// copydata reads the file at src and appends its contents to dst in
// the provided filesystem.
func copydata(src string, f *ufs.Ufs_t, dst string) {
	srcFile, err := os.Open(src)
	if err != nil {
		panic(err)
	}
	defer srcFile.Close()

	buf := make([]byte, fs.BSIZE)
	for {
		n, readErr := srcFile.Read(buf)
		if readErr != nil && readErr != io.EOF {
			panic(readErr)
		}
		if n == 0 {
			break
		}
		chunk := ufs.MkBuf(buf[:n])
		f.Append(ustr.Ustr(dst), chunk)
		if readErr == io.EOF {
			break
		}
	}
}

// addfiles walks skeldir on the host and replicates its contents into
// fsys.
func addfiles(fsys *ufs.Ufs_t, skeldir string) {
	err := filepath.WalkDir(skeldir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			fmt.Printf("failed to access %q: %v\n", path, err)
			return err
		}

		rel := strings.TrimPrefix(path, skeldir)
		if rel == "" {
			return nil
		}

		if d.IsDir() {
			if e := fsys.MkDir(ustr.Ustr(rel)); e != 0 {
				fmt.Printf("failed to create dir %v\n", rel)
			}
			return nil
		}

		if e := fsys.MkFile(ustr.Ustr(rel), nil); e != 0 {
			fmt.Printf("failed to create file %v\n", rel)
		}
		copydata(path, fsys, rel)
		return nil
	})

	if err != nil {
		fmt.Printf("error walking the path %q: %v\n", skeldir, err)
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: mkfs <image> <nsectors> [skel dir]\n")
		os.Exit(1)
	}

	image := os.Args[1]
	nsectors, err := strconv.Atoi(os.Args[2])
	if err != nil || nsectors <= 0 {
		fmt.Printf("bad sector count %q\n", os.Args[2])
		os.Exit(1)
	}

	fsys, err := ufs.BootFS(image, nsectors)
	if err != nil {
		panic(err)
	}
	if _, serr := fsys.Stat(ustr.MkUstrRoot()); serr != 0 {
		fmt.Printf("not a valid fs: no root inode\n")
		os.Exit(1)
	}

	if len(os.Args) >= 4 {
		addfiles(fsys, os.Args[3])
	}

	ufs.ShutdownFS(fsys)
}
