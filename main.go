// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/xz-dev/distrobox-plus/cmd/distrobox-boost"

func main() {
	cmd.Execute()
}
