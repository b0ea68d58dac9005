// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"
)

// formatVersion changes whenever the generated recipe for the same inputs
// changes, so that existing images are rebuilt.
const formatVersion = "distrobox-boost.recipe/v2"

// Fingerprint is the cache key of a build, rendered as "sha256:<hex>".
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Short returns the first 12 hex digits, for display.
func (f Fingerprint) Short() string {
	s := strings.TrimPrefix(string(f), "sha256:")
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

// ComputeFingerprint digests the baked fields. Packages are treated as a set;
// hooks are ordered. Every field is length-prefixed so that no two distinct
// inputs share an encoding.
func ComputeFingerprint(image string, in Inputs, opts Options) Fingerprint {
	h := sha256.New()

	writeField(h, "version", formatVersion)
	writeField(h, "image", strings.TrimSpace(image))
	writeList(h, "packages", NormalizePackages(in.Packages))
	writeList(h, "pre_init_hooks", hookCommands(in.PreInitHooks))
	writeList(h, "init_hooks", hookCommands(in.InitHooks))
	writeField(h, "upgrade", strconv.FormatBool(opts.Upgrade))
	writeField(h, "install_deps", strconv.FormatBool(opts.InstallDeps))

	return Fingerprint("sha256:" + hex.EncodeToString(h.Sum(nil)))
}

func writeField(h hash.Hash, name, value string) {
	writeString(h, name)
	writeString(h, value)
}

func writeList(h hash.Hash, name string, values []string) {
	writeString(h, name)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(values)))
	h.Write(n[:])
	for _, v := range values {
		writeString(h, v)
	}
}

func writeString(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}
