package buildinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	old := Commit
	t.Cleanup(func() { Commit = old })

	Commit = "0123456789abcdef"
	info := Info()
	assert.Equal(t, Version, info["version"])
	assert.Equal(t, "0123456789abcdef", info["commit"])
	assert.Equal(t, runtime.Version(), info["goVersion"])
	assert.Equal(t, Version+" (0123456789ab)", String())
}
