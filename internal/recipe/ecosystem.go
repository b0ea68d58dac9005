// SPDX-License-Identifier: MPL-2.0

package recipe

import "strings"

// Ecosystem describes how to detect and drive one package manager family.
type Ecosystem struct {
	// ID is the stable identifier (apk, apt, dnf, pacman, zypper).
	ID string
	// Family names the distributions this ecosystem covers.
	Family string
	// Detect is a shell condition that succeeds when the ecosystem is present.
	Detect string
	// Deps are the packages distrobox expects inside the container.
	Deps []string

	upgrade string
	install string
}

// Upgrade returns the fragment that upgrades every installed package.
func (e Ecosystem) Upgrade() string { return e.upgrade }

// Install returns the fragment that installs pkgs, which must already be
// shell words.
func (e Ecosystem) Install(pkgs []string) string {
	return strings.ReplaceAll(e.install, "{pkgs}", strings.Join(pkgs, " "))
}

func present(bin string) string {
	return "command -v " + bin + " >/dev/null 2>&1"
}

// ecosystems is ordered by detection priority.
var ecosystems = []Ecosystem{
	{
		ID:      "apk",
		Family:  "Alpine",
		Detect:  present("apk"),
		upgrade: "apk update && apk upgrade",
		install: "apk add --no-cache {pkgs}",
		Deps: []string{
			"bash", "bc", "bzip2", "curl", "diffutils", "findutils", "gnupg", "gpg",
			"less", "lsof", "mount", "ncurses", "ncurses-terminfo", "pinentry", "procps",
			"shadow", "sudo", "tar", "tree", "tzdata", "umount", "util-linux",
			"util-linux-misc", "vte3", "wget", "xz", "zip",
		},
	},
	{
		ID:     "apt",
		Family: "Debian, Ubuntu",
		Detect: present("apt-get"),
		upgrade: "export DEBIAN_FRONTEND=noninteractive && apt-get update && " +
			`apt-get upgrade -o Dpkg::Options::="--force-confold" -y`,
		install: "export DEBIAN_FRONTEND=noninteractive && apt-get update && apt-get install -y {pkgs}",
		Deps: []string{
			"apt-utils", "bash", "bc", "bzip2", "curl", "diffutils", "findutils", "gnupg2",
			"less", "libnss-myhostname", "libvte-2.91-common", "libvte-common", "lsof",
			"ncurses-base", "passwd", "pinentry-curses", "procps", "sudo", "tar", "time",
			"tree", "tzdata", "util-linux", "wget", "xz-utils", "zip",
		},
	},
	{
		ID:     "dnf",
		Family: "Fedora, RHEL, CentOS",
		Detect: present("dnf") + " || " + present("microdnf") + " || " + present("yum"),
		upgrade: "if " + present("dnf") + "; then dnf upgrade -y; " +
			"elif " + present("microdnf") + "; then microdnf upgrade -y; " +
			"else yum upgrade -y; fi",
		install: "if " + present("dnf") + "; then dnf install -y {pkgs}; " +
			"elif " + present("microdnf") + "; then microdnf install -y {pkgs}; " +
			"else yum install -y {pkgs}; fi",
		Deps: []string{
			"bash", "bc", "bzip2", "curl", "diffutils", "dnf-plugins-core", "findutils",
			"gnupg2", "less", "lsof", "ncurses", "passwd", "pinentry", "procps-ng",
			"shadow-utils", "sudo", "tar", "time", "tree", "tzdata", "util-linux",
			"vte-profile", "wget", "xz", "zip",
		},
	},
	{
		ID:      "pacman",
		Family:  "Arch",
		Detect:  present("pacman"),
		upgrade: "pacman -Syyu --noconfirm",
		install: "pacman -S --noconfirm --needed {pkgs}",
		Deps: []string{
			"bash", "bc", "bzip2", "curl", "diffutils", "findutils", "gnupg", "less",
			"lsof", "ncurses", "pinentry", "procps-ng", "shadow", "sudo", "tar", "time",
			"tree", "tzdata", "util-linux", "vte-common", "wget", "xz", "zip",
		},
	},
	{
		ID:      "zypper",
		Family:  "openSUSE",
		Detect:  present("zypper"),
		upgrade: "zypper dup -y",
		install: "zypper install -y {pkgs}",
		Deps: []string{
			"bash", "bc", "bzip2", "curl", "diffutils", "findutils", "gpg2", "less",
			"lsof", "ncurses", "pinentry", "procps", "shadow", "sudo", "tar", "time",
			"tree", "timezone", "util-linux", "wget", "xz", "zip",
		},
	},
}
