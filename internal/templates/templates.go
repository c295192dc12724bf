// Package templates embeds the configuration templates rendered by the charm. Base
// templates live in files/; a copy under files/<release>/ overrides the base from that
// release onwards. Files installed verbatim by a source build live under files/git/.
package templates

import (
	"embed"
	"io/fs"
)

//go:embed all:files
var embedded embed.FS

// FS returns the embedded template tree rooted at files/.
func FS() fs.FS {
	sub, err := fs.Sub(embedded, "files")
	if err != nil {
		panic(err)
	}
	return sub
}

// SourceAssets returns the files a source build installs verbatim, rooted at files/git/.
func SourceAssets() fs.FS {
	sub, err := fs.Sub(FS(), "git")
	if err != nil {
		panic(err)
	}
	return sub
}
