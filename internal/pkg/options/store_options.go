package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// StoreOptions selects the trajectory/run persistence driver.
type StoreOptions struct {
	Driver string `json:"driver" mapstructure:"driver"`
	Path   string `json:"path" mapstructure:"path"`
}

func NewStoreOptions() *StoreOptions {
	return &StoreOptions{
		Driver: "boltdb",
		Path:   "arbor.db",
	}
}

func (o *StoreOptions) Validate() []error {
	var errs []error
	switch o.Driver {
	case "boltdb", "sqlite", "inmemory":
	default:
		errs = append(errs, fmt.Errorf("store: unknown driver %q", o.Driver))
	}
	if o.Driver != "inmemory" && o.Path == "" {
		errs = append(errs, fmt.Errorf("store: path is required for driver %q", o.Driver))
	}
	return errs
}

func (o *StoreOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Driver, "store", o.Driver, "Trajectory store driver: boltdb, sqlite or inmemory.")
	fs.StringVar(&o.Path, "store-path", o.Path, "Trajectory store file path.")
}
