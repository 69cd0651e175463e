//go:build unix

package platform

import "io/fs"

// modeMask covers the permission bits plus setuid, setgid, and sticky.
const modeMask = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// MaskMode masks a caller-supplied mode to the bits valid on this platform.
func MaskMode(m fs.FileMode) fs.FileMode {
	return m & modeMask
}

// StatMode derives an entry mode from filesystem stat info.
func StatMode(info fs.FileInfo, isDir bool) fs.FileMode {
	return info.Mode() & modeMask
}
