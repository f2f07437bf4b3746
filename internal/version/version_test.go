package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFullVersion(t *testing.T) {
	defer func(commit string) { GitCommit = commit }(GitCommit)

	GitCommit = "unknown"
	assert.Equal(t, Version, GetFullVersion())

	GitCommit = "0123456789abcdef"
	assert.Equal(t, Version+"-0123456", GetFullVersion())
}

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo("usdlog")
	assert.Contains(t, info, "usdlog version "+Version)
	assert.Contains(t, info, "Go: ")
	assert.Contains(t, info, "Platform: ")
}
