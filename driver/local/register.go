package local

import "github.com/gobeaver/uploadkit"

// The adapter self-registers so uploadkit.New can build it from
// Config.Driver alone.
func init() {
	uploadkit.RegisterDriver("local", func(cfg *uploadkit.Config) (uploadkit.FileSystem, error) {
		return New(cfg.LocalBasePath)
	})
}
