package memory

import "github.com/gobeaver/uploadkit"

// The adapter self-registers so uploadkit.New can build it from
// Config.Driver alone. Capacity limits are opted into through the
// package Config and cannot be expressed here.
func init() {
	uploadkit.RegisterDriver("memory", func(cfg *uploadkit.Config) (uploadkit.FileSystem, error) {
		return New(), nil
	})
}
