package shared

import (
	"github.com/spf13/pflag"
)

// HasFlags reports whether any flag was set on the command line.
func HasFlags(flags *pflag.FlagSet) bool {
	return flags.NFlag() > 0
}

// StringSliceValue returns the value of a string slice flag, or nil when the flag
// is unknown or unset.
func StringSliceValue(flags *pflag.FlagSet, name string) []string {
	if !flags.Changed(name) {
		return nil
	}
	values, err := flags.GetStringSlice(name)
	if err != nil {
		return nil
	}
	return values
}
