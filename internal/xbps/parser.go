// Package xbps drives the XBPS package manager binaries. Mutating
// invocations are elevated through pkexec; queries run unprivileged.
package xbps

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/geektoshi/nebulactl/internal/ops"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes terminal color escapes from tool output.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// SplitPackageIdentifier splits an xbps pkgver ("firefox-128.0_1") into the
// package name and version. The version starts after the last hyphen that
// is followed by a digit; a string with no such hyphen is all name.
func SplitPackageIdentifier(pkgver string) (name, version string) {
	for i := len(pkgver) - 1; i > 0; i-- {
		if pkgver[i] != '-' {
			continue
		}
		if i+1 < len(pkgver) && pkgver[i+1] >= '0' && pkgver[i+1] <= '9' {
			return pkgver[:i], pkgver[i+1:]
		}
	}
	return pkgver, ""
}

// ParseUpdatePlan parses `xbps-install -Sun` dry-run output into the set of
// packages that would be updated. Each plan line has the form
//
//	pkgver action arch repository installed_size download_size
//
// and only "update" and "install" actions (new dependencies pulled in by an
// update) are part of the plan. Non-plan chatter such as repository sync
// messages is skipped.
func ParseUpdatePlan(output string) []ops.PackageRef {
	var plan []ops.PackageRef
	sc := bufio.NewScanner(strings.NewReader(StripANSI(output)))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		action := fields[1]
		if action != "update" && action != "install" {
			continue
		}
		name, version := SplitPackageIdentifier(fields[0])
		if name == "" {
			continue
		}
		plan = append(plan, ops.PackageRef{Name: name, Version: version})
	}
	return plan
}

// ParseHeldPackages parses `xbps-query -H` output: one pkgver per line.
func ParseHeldPackages(output string) []string {
	var held []string
	sc := bufio.NewScanner(strings.NewReader(StripANSI(output)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name, _ := SplitPackageIdentifier(line)
		held = append(held, name)
	}
	return held
}
