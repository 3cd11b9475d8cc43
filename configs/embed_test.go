package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomrikert/wayfair-mcp-server/internal/config"
)

func TestTemplatesLoadAsValidConfig(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{name: "user", template: UserConfigTemplate},
		{name: "project", template: ProjectConfigTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: the embedded template written to disk
			require.NotEmpty(t, tt.template)
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.template), 0o644))

			// When: loading it over the defaults
			cfg, err := config.LoadFile(path)

			// Then: it parses and validates
			require.NoError(t, err)
			assert.NoError(t, cfg.Validate())
		})
	}
}
