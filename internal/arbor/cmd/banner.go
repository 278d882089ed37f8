package cmd

import (
	"fmt"

	"github.com/arborworks/arbor/pkg/version"
)

const bannerText = `
     _         _
    / \   _ __| |__   ___  _ __
   / _ \ | '__| '_ \ / _ \| '__|
  / ___ \| |  | |_) | (_) | |
 /_/   \_\_|  |_.__/ \___/|_|

    Recursive Completion Engine
`

// Banner returns the CLI banner string.
func Banner() string {
	return fmt.Sprintf("%s\n  Version: %s\n", bannerText, version.Get().String())
}
