package prompt

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.yaml
var builtin embed.FS

// Builtin returns the templates compiled into the binary.
func Builtin() fs.FS {
	sub, err := fs.Sub(builtin, "templates")
	if err != nil {
		panic(err) // the embed pattern guarantees the directory exists
	}
	return sub
}
