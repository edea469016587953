// Package bpath canonicalizes file-system paths the way the facade expects
// to receive them: an absolute path with "." and ".." resolved away and no
// repeated or trailing slashes (except the root itself).
//
// The teacher's fd.Cwd_t.Canonicalpath calls bpath.Canonicalize but the
// package was not part of the retrieval pack; this is a fresh
// implementation grounded on that call site and on spec.md §4.4's path
// resolution rules (split on '/', reject empty components except the
// trailing slash, "." and ".." are resolved against the accumulated
// stack).
package bpath

import "github.com/laonahongchen/PintOS-SJTU/ustr"

/// Canonicalize resolves p (which must already be absolute, i.e. start
/// with '/' -- fd.Cwd_t.Fullpath guarantees this) into a normal form: no
/// empty components, no "." components, and "/.." components popped
/// against the stack built so far ("/.." at the root stays at the root).
func Canonicalize(p ustr.Ustr) ustr.Ustr {
	var stack []ustr.Ustr
	for _, c := range p.Components() {
		switch {
		case c.Isdot():
			continue
		case c.Isdotdot():
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, c)
		}
	}
	if len(stack) == 0 {
		return ustr.MkUstrRoot()
	}
	ret := ustr.Ustr{}
	for _, c := range stack {
		ret = append(ret, '/')
		ret = append(ret, c...)
	}
	return ret
}
