// Package nevra splits RPM filenames into their Name-Epoch-Version-Release-Arch
// components.
package nevra

import "strings"

// Split decomposes an RPM filename into name, version, release, epoch, and
// arch.
//
// The input may carry a leading "epoch:" prefix ahead of the name (as
// content stores sometimes report it), e.g.
// "32:bind-9.10.2-2.P1.fc22.x86_64.rpm" splits to
// ("bind", "9.10.2", "2.P1.fc22", "32", "x86_64"). Without that prefix,
// epoch is the empty string. Split is a pure, total function: it never
// errors, since every filename can be segmented by its trailing dots and
// dashes even if the result is meaningless.
func Split(filename string) (name, version, release, epoch, arch string) {
	f := filename

	if i := strings.IndexByte(f, ':'); i != -1 {
		if d := strings.IndexByte(f, '-'); d == -1 || i < d {
			epoch = f[:i]
			f = f[i+1:]
		}
	}

	f = strings.TrimSuffix(f, ".rpm")

	i := strings.LastIndexByte(f, '.')
	if i == -1 {
		return f, "", "", epoch, ""
	}
	arch = f[i+1:]
	f = f[:i]

	i = strings.LastIndexByte(f, '-')
	if i == -1 {
		return f, "", "", epoch, arch
	}
	release = f[i+1:]
	f = f[:i]

	i = strings.LastIndexByte(f, '-')
	if i == -1 {
		return f, "", release, epoch, arch
	}
	version = f[i+1:]
	name = f[:i]

	return name, version, release, epoch, arch
}
