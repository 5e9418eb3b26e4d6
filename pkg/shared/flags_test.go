package shared

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasFlags(t *testing.T) {
	flags := pflag.NewFlagSet("scan", pflag.ContinueOnError)
	flags.Bool("upload", false, "")
	flags.StringSlice("files", nil, "")

	require.NoError(t, flags.Parse([]string{"/srv/app"}))
	assert.False(t, HasFlags(flags))
	assert.Nil(t, StringSliceValue(flags, "files"))

	require.NoError(t, flags.Parse([]string{"--files", "a.py,b.py"}))
	assert.True(t, HasFlags(flags))
	assert.Equal(t, []string{"a.py", "b.py"}, StringSliceValue(flags, "files"))
	assert.Nil(t, StringSliceValue(flags, "missing"))
}
