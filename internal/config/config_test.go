package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrinterRoutes(t *testing.T) {
	data := []byte(`
default: 192.168.1.50:9100
routes:
  - group: BAR
    address: 192.168.1.51:9100
  - group: KITCHEN
    address: 192.168.1.52:9100
    copies: 2
`)
	pr, err := ParsePrinterRoutes(data)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50:9100", pr.Default)
	require.Len(t, pr.Routes, 2)
	assert.Equal(t, 1, pr.Routes[0].Copies)
	assert.Equal(t, 2, pr.Routes[1].Copies)
}

func TestParsePrinterRoutes_MissingAddress(t *testing.T) {
	_, err := ParsePrinterRoutes([]byte("routes:\n  - group: BAR\n"))
	assert.Error(t, err)
}

func TestLoadPrinterRoutes_EmptyPath(t *testing.T) {
	pr, err := LoadPrinterRoutes("")
	require.NoError(t, err)
	assert.Empty(t, pr.Routes)
}

func TestLoadPrinterRoutes_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default: 10.0.0.9:9100\n"), 0o600))

	pr, err := LoadPrinterRoutes(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9:9100", pr.Default)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MDNS_ENABLED", "true")
	t.Setenv("TIMEZONE", "")

	cfg := Load()
	assert.Equal(t, "8081", cfg.Port)
	assert.True(t, cfg.MDNS)
	assert.Equal(t, "UTC", cfg.TimeZone)
}

func TestApplyTimeZone(t *testing.T) {
	prev := time.Local
	t.Cleanup(func() { time.Local = prev })

	require.NoError(t, ApplyTimeZone("Asia/Kolkata"))
	assert.Equal(t, "Asia/Kolkata", time.Local.String())

	assert.Error(t, ApplyTimeZone("Mars/Olympus"))
	assert.Equal(t, "Asia/Kolkata", time.Local.String(), "a bad name leaves the zone alone")
}
