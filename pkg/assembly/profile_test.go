package assembly

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profilesYAML = `profiles:
  - name: manager
    facets:
      - type: account
        config:
          account_number: ACC001
      - type: security
        config:
          role: manager
      - type: audit
  - name: minimal
    facets:
      - type: audit
        config:
          max_entries: 10
`

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderLoad(t *testing.T) {
	loader, err := NewLoader(writeProfiles(t, profilesYAML))
	require.NoError(t, err)

	assert.Nil(t, loader.Current(), "nothing loaded yet")

	set, err := loader.Load()
	require.NoError(t, err)
	require.Len(t, set.Profiles, 2)
	assert.Same(t, set, loader.Current())

	profile, ok := set.Profile("manager")
	require.True(t, ok)
	assert.Len(t, profile.Facets, 3)
	assert.Equal(t, "ACC001", profile.Facets[0].Config["account_number"])

	_, ok = set.Profile("missing")
	assert.False(t, ok)
}

func TestLoaderExpandsEnvironment(t *testing.T) {
	t.Setenv("ACCOUNT_NUMBER", "ACC777")
	path := writeProfiles(t, `profiles:
  - name: manager
    facets:
      - type: account
        config:
          account_number: ${ACCOUNT_NUMBER}
`)

	loader, err := NewLoader(path)
	require.NoError(t, err)
	set, err := loader.Load()
	require.NoError(t, err)

	profile, ok := set.Profile("manager")
	require.True(t, ok)
	assert.Equal(t, "ACC777", profile.Facets[0].Config["account_number"])
}

func TestLoaderValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty profile name", "profiles:\n  - name: \"\"\n    facets: []\n"},
		{"duplicate profile name", "profiles:\n  - name: a\n    facets: []\n  - name: a\n    facets: []\n"},
		{"empty facet type", "profiles:\n  - name: a\n    facets:\n      - type: \"\"\n"},
		{"duplicate facet type", "profiles:\n  - name: a\n    facets:\n      - type: audit\n      - type: audit\n"},
		{"malformed yaml", "profiles: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loader, err := NewLoader(writeProfiles(t, tc.content))
			require.NoError(t, err)
			_, err = loader.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoaderKeepsPreviousSetOnFailedReload(t *testing.T) {
	path := writeProfiles(t, profilesYAML)
	loader, err := NewLoader(path)
	require.NoError(t, err)

	set, err := loader.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("profiles: [\n"), 0o644))
	_, err = loader.Load()
	require.Error(t, err)
	assert.Same(t, set, loader.Current(), "failed reload keeps the previous set")
}

func TestLoaderCloseIsIdempotent(t *testing.T) {
	loader, err := NewLoader(writeProfiles(t, profilesYAML))
	require.NoError(t, err)
	require.NoError(t, loader.Close())
	require.NoError(t, loader.Close())

	watching, err := NewLoader(writeProfiles(t, profilesYAML))
	require.NoError(t, err)
	require.NoError(t, watching.Watch(func(*ProfileSet) {}))
	require.NoError(t, watching.Close())
	require.NoError(t, watching.Close())
}

func TestLoaderWatch(t *testing.T) {
	path := writeProfiles(t, profilesYAML)
	loader, err := NewLoader(path)
	require.NoError(t, err)
	defer loader.Close()

	_, err = loader.Load()
	require.NoError(t, err)

	reloaded := make(chan *ProfileSet, 1)
	require.NoError(t, loader.Watch(func(set *ProfileSet) {
		select {
		case reloaded <- set:
		default:
		}
	}))

	require.NoError(t, os.WriteFile(path, []byte(`profiles:
  - name: updated
    facets:
      - type: audit
`), 0o644))

	select {
	case set := <-reloaded:
		_, ok := set.Profile("updated")
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("reload notification never arrived")
	}
}
