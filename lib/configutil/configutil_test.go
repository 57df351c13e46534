package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Months   int    `json:"months" yaml:"months"`
}

func writeFile(t *testing.T, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadYamlConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "username: john\npassword: secret\nmonths: 3\n")

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, testConfig{Username: "john", Password: "secret", Months: 3}, cfg)
}

func TestReadJson5Config(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{username: "john", months: 2}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "john", cfg.Username)
	require.Equal(t, 2, cfg.Months)
}

func TestLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), "username: john\nmonths: 3\n")
	writeFile(t, filepath.Join(dir, "config.local.yaml"), "username: jane\n")

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "jane", cfg.Username)
	require.Equal(t, 3, cfg.Months)
}

func TestMissingConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.toml"), "username = 'john'\n")

	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.toml"))
	require.Error(t, err)
}
