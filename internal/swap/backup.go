package swap

import (
	"fmt"
	"io"
	"os"

	"github.com/spaolacci/murmur3"
)

// copyFile copies src to dst, replacing dst if it exists, and carries over
// the file mode and modification time. It returns the number of bytes
// written.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return n, err
	}
	if err := out.Close(); err != nil {
		return n, err
	}

	// An existing dst keeps its old mode through O_TRUNC.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return n, err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return n, err
	}
	return n, nil
}

// digest returns the murmur3 128-bit hash of the file at path.
func digest(path string) ([2]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return [2]uint64{}, err
	}
	defer f.Close()

	h := murmur3.New128()
	if _, err := io.Copy(h, f); err != nil {
		return [2]uint64{}, err
	}
	h1, h2 := h.Sum128()
	return [2]uint64{h1, h2}, nil
}

// verifyCopy checks that dst holds the same bytes as src.
func verifyCopy(src, dst string) error {
	want, err := digest(src)
	if err != nil {
		return err
	}
	got, err := digest(dst)
	if err != nil {
		return err
	}
	if want != got {
		return fmt.Errorf("backup %s does not match %s", dst, src)
	}
	return nil
}
