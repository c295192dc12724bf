package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/fsutil"
	"github.com/openstack-charmers/charm-openstack-dashboard/internal/messages"
)

// Dir is a directory to create with explicit ownership and mode.
type Dir struct {
	Path  string
	Owner string
	Group string
	Perm  os.FileMode
	// Force replaces a non-directory already occupying Path.
	Force bool
}

// UserOptions controls system user creation.
type UserOptions struct {
	Shell      string
	SystemUser bool
}

// System is the full set of host primitives. Consumers declare the subset they need.
type System interface {
	Stat(name string) (os.FileInfo, error)
	Lstat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFileAtomic(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Mkdir(ctx context.Context, dir Dir) error
	Remove(name string) error
	RemoveAll(path string) error
	CopyFile(src string, dst string) error
	CopyTree(src string, dst string) error
	Symlink(oldname string, newname string) error
	Chmod(name string, perm os.FileMode) error
	Chown(name string, owner string, group string) error
	LchownTree(root string, owner string, group string) error

	AddUser(ctx context.Context, name string, opts UserOptions) error
	AddGroup(ctx context.Context, name string, system bool) error
	AddUserToGroup(ctx context.Context, username string, group string) error
	SetHomeDir(ctx context.Context, username string, home string) error
}

// IsDir reports whether path exists and is a directory.
func IsDir(sys interface{ Stat(string) (os.FileInfo, error) }, path string) bool {
	info, err := sys.Stat(path)
	return err == nil && info.IsDir()
}

// IsFile reports whether path exists and is a regular file.
func IsFile(sys interface{ Stat(string) (os.FileInfo, error) }, path string) bool {
	info, err := sys.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Exists reports whether path exists, without following a final symlink.
func Exists(sys interface{ Lstat(string) (os.FileInfo, error) }, path string) bool {
	_, err := sys.Lstat(path)
	return err == nil
}

// Local implements System on the running machine. User and group management shells out
// through Runner.
type Local struct {
	Runner Runner
}

// NewLocal returns a Local backed by runner.
func NewLocal(runner Runner) *Local {
	return &Local{Runner: runner}
}

// Stat returns a FileInfo describing the named file.
func (l *Local) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// Lstat returns a FileInfo describing the named file without following symlinks.
func (l *Local) Lstat(name string) (os.FileInfo, error) {
	return os.Lstat(name)
}

// ReadFile reads the named file.
func (l *Local) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// WriteFileAtomic writes data through a temp file and rename.
func (l *Local) WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	return fsutil.WriteFileAtomic(name, data, perm)
}

// MkdirAll creates path and any missing parents.
func (l *Local) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Mkdir creates dir.Path if needed, then applies ownership and mode unconditionally.
func (l *Local) Mkdir(_ context.Context, dir Dir) error {
	path, err := filepath.Abs(dir.Path)
	if err != nil {
		return fmt.Errorf(messages.HostCreateDirFailedFmt, dir.Path, err)
	}
	info, statErr := os.Stat(path)
	switch {
	case statErr == nil && !info.IsDir() && dir.Force:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf(messages.HostCreateDirFailedFmt, path, err)
		}
		if err := os.MkdirAll(path, dir.Perm); err != nil {
			return fmt.Errorf(messages.HostCreateDirFailedFmt, path, err)
		}
	case errors.Is(statErr, os.ErrNotExist):
		if err := os.MkdirAll(path, dir.Perm); err != nil {
			return fmt.Errorf(messages.HostCreateDirFailedFmt, path, err)
		}
	case statErr != nil:
		return fmt.Errorf(messages.HostCreateDirFailedFmt, path, statErr)
	}
	if err := l.Chown(path, dir.Owner, dir.Group); err != nil {
		return err
	}
	return l.Chmod(path, dir.Perm)
}

// Remove removes the named file or empty directory.
func (l *Local) Remove(name string) error {
	return os.Remove(name)
}

// RemoveAll removes path and any children it contains.
func (l *Local) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// CopyFile copies the contents and mode of src to dst.
func (l *Local) CopyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf(messages.HostCopyFailedFmt, src, dst, err)
	}
	defer func() { _ = in.Close() }()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf(messages.HostCopyFailedFmt, src, dst, err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf(messages.HostCopyFailedFmt, src, dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf(messages.HostCopyFailedFmt, src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf(messages.HostCopyFailedFmt, src, dst, err)
	}
	return nil
}

// CopyTree copies the directory tree at src to dst, which must not exist. Symlinks are
// recreated rather than followed.
func (l *Local) CopyTree(src string, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf(messages.HostCopyTreeDestExistsFmt, dst)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return l.CopyFile(path, target)
		}
	})
}

// Symlink creates newname as a symbolic link to oldname.
func (l *Local) Symlink(oldname string, newname string) error {
	return os.Symlink(oldname, newname)
}

// Chmod changes the mode of the named file.
func (l *Local) Chmod(name string, perm os.FileMode) error {
	if err := os.Chmod(name, perm); err != nil {
		return fmt.Errorf(messages.HostChmodFailedFmt, name, err)
	}
	return nil
}

// Chown changes the owner and group of name, following symlinks.
func (l *Local) Chown(name string, owner string, group string) error {
	uid, gid, err := lookupIDs(owner, group)
	if err != nil {
		return err
	}
	if err := unix.Chown(name, uid, gid); err != nil {
		return fmt.Errorf(messages.HostChownFailedFmt, name, owner, group, err)
	}
	return nil
}

// LchownTree changes ownership of every entry below root without following symlinks.
// root itself is left alone.
func (l *Local) LchownTree(root string, owner string, group string) error {
	uid, gid, err := lookupIDs(owner, group)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if err := unix.Lchown(path, uid, gid); err != nil {
			return fmt.Errorf(messages.HostChownFailedFmt, path, owner, group, err)
		}
		return nil
	})
}

// AddUser creates a user unless it already exists.
func (l *Local) AddUser(ctx context.Context, name string, opts UserOptions) error {
	if _, err := user.Lookup(name); err == nil {
		return nil
	}
	args := []string{}
	if opts.SystemUser {
		args = append(args, "--system")
	}
	if opts.Shell != "" {
		args = append(args, "--shell", opts.Shell)
	}
	args = append(args, name)
	_, err := l.Runner.Run(ctx, Command{Name: "adduser", Args: args})
	return err
}

// AddGroup creates a group unless it already exists.
func (l *Local) AddGroup(ctx context.Context, name string, system bool) error {
	if _, err := user.LookupGroup(name); err == nil {
		return nil
	}
	args := []string{}
	if system {
		args = append(args, "--system")
	}
	args = append(args, name)
	_, err := l.Runner.Run(ctx, Command{Name: "addgroup", Args: args})
	return err
}

// AddUserToGroup adds username to group.
func (l *Local) AddUserToGroup(ctx context.Context, username string, group string) error {
	_, err := l.Runner.Run(ctx, Command{Name: "gpasswd", Args: []string{"-a", username, group}})
	return err
}

// SetHomeDir points the home directory of username at home.
func (l *Local) SetHomeDir(ctx context.Context, username string, home string) error {
	_, err := l.Runner.Run(ctx, Command{Name: "usermod", Args: []string{"--home", home, username}})
	return err
}

func lookupIDs(owner string, group string) (int, int, error) {
	u, err := user.Lookup(owner)
	if err != nil {
		return 0, 0, fmt.Errorf(messages.HostLookupUserFailedFmt, owner, err)
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return 0, 0, fmt.Errorf(messages.HostLookupGroupFailedFmt, group, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, fmt.Errorf(messages.HostLookupUserFailedFmt, owner, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, 0, fmt.Errorf(messages.HostLookupGroupFailedFmt, group, err)
	}
	return uid, gid, nil
}
