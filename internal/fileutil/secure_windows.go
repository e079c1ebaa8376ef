//go:build windows

// Package fileutil creates export files and directories that only the
// current user can read.
package fileutil

import (
	"log/slog"
	"os"

	"golang.org/x/sys/windows"
)

// isOwnerOnly reports whether perm grants nothing to group or other.
func isOwnerOnly(perm os.FileMode) bool {
	return perm&0o077 == 0
}

// restrictToCurrentUser replaces the DACL on path with a single ACE granting
// GENERIC_ALL to the current user and blocks inheritance. Failures are
// logged; the Unix mode passed at creation is the fallback.
func restrictToCurrentUser(path string) {
	user, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		slog.Warn("cannot get current user SID, skipping DACL", "path", path, "error", err)
		return
	}

	acl, err := windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.SET_ACCESS,
		Inheritance:       windows.NO_INHERITANCE,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_USER,
			TrusteeValue: windows.TrusteeValueFromSID(user.User.Sid),
		},
	}}, nil)
	if err != nil {
		slog.Warn("cannot build ACL, skipping DACL", "path", path, "error", err)
		return
	}

	info := windows.DACL_SECURITY_INFORMATION | windows.PROTECTED_DACL_SECURITY_INFORMATION
	if err := windows.SetNamedSecurityInfo(path, windows.SE_FILE_OBJECT,
		windows.SECURITY_INFORMATION(info), nil, nil, acl, nil); err != nil {
		slog.Warn("cannot set DACL", "path", path, "error", err)
	}
}

// SecureMkdirAll creates path and any missing parents with perm. Owner-only
// modes also restrict the final directory's DACL to the current user.
func SecureMkdirAll(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return err
	}
	if isOwnerOnly(perm) {
		restrictToCurrentUser(path)
	}
	return nil
}

// SecureOpenFile opens path with flag and perm. Newly created files with an
// owner-only mode get a DACL restricted to the current user.
func SecureOpenFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	if isOwnerOnly(perm) && flag&os.O_CREATE != 0 {
		restrictToCurrentUser(path)
	}
	return f, nil
}

// SecureChmod changes the mode of path, applying the DACL for owner-only modes.
func SecureChmod(path string, perm os.FileMode) error {
	if err := os.Chmod(path, perm); err != nil {
		return err
	}
	if isOwnerOnly(perm) {
		restrictToCurrentUser(path)
	}
	return nil
}
