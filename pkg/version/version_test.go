package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_FollowsSemverOrDev(t *testing.T) {
	// Given: the version package is imported

	// When: accessing Version

	// Then: it is "dev" or a semver string injected via ldflags
	if Version == "dev" {
		return
	}
	semverRegex := regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	require.True(t, semverRegex.MatchString(Version), "Version should follow semver format, got: %s", Version)
}

func TestString_ReturnsFormattedString(t *testing.T) {
	// Given: the version package is imported

	// When: calling String()
	str := String()

	// Then: it carries the program name, version and build info
	assert.Contains(t, str, Name)
	assert.Contains(t, str, Version)
	assert.Contains(t, str, "commit")
	assert.Contains(t, str, GoVersion)
}

func TestGetInfo_MarshalsPlatform(t *testing.T) {
	// Given: the build info
	info := GetInfo()

	// When: marshalling to JSON
	data, err := json.Marshal(info)
	require.NoError(t, err)

	// Then: the platform fields are populated from the runtime
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "wayfairmcp", decoded["name"])
	assert.Equal(t, runtime.GOOS, decoded["os"])
	assert.Equal(t, runtime.GOARCH, decoded["arch"])
	assert.Equal(t, Short(), decoded["version"])
}
