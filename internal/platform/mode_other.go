//go:build !unix

package platform

import "io/fs"

// modeMask is restricted to the permission bits; setuid/setgid/sticky
// have no meaning on this platform.
const modeMask = fs.ModePerm

// MaskMode masks a caller-supplied mode to the bits valid on this platform.
func MaskMode(m fs.FileMode) fs.FileMode {
	return m & modeMask
}

// StatMode derives an entry mode from filesystem stat info.
// Directory modes reported by stat are not reliable here, so directories
// get a fixed mode.
func StatMode(info fs.FileInfo, isDir bool) fs.FileMode {
	if isDir {
		return 0o755
	}
	return info.Mode() & modeMask
}
