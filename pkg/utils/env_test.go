package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIntEnv(t *testing.T) {
	t.Setenv("LT_INT", "42")
	t.Setenv("LT_BAD", "forty")
	assert.Equal(t, int64(42), GetIntEnv("LT_INT"))
	assert.Equal(t, int64(0), GetIntEnv("LT_BAD"))
	assert.Equal(t, int64(0), GetIntEnv("LT_MISSING"))
}

func TestGetBoolEnv(t *testing.T) {
	cases := map[string]bool{"1": true, "true": true, "YES": true, "on": true, "0": false, "no": false, "": false}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			t.Setenv("LT_BOOL", in)
			assert.Equal(t, want, GetBoolEnv("LT_BOOL"))
		})
	}
}

func TestGetFloatEnv(t *testing.T) {
	t.Setenv("LT_FLOAT", " 0.25 ")
	v, ok := GetFloatEnv("LT_FLOAT")
	assert.True(t, ok)
	assert.InDelta(t, 0.25, v, 1e-9)

	_, ok = GetFloatEnv("LT_FLOAT_MISSING")
	assert.False(t, ok)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Error(t, LoadEnv("test"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LT_FROM_BASE=base\nLT_SHARED=base\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"), []byte("LT_SHARED=test\n"), 0o644))
	t.Setenv("LT_FROM_BASE", "")
	t.Setenv("LT_SHARED", "")
	os.Unsetenv("LT_FROM_BASE")
	os.Unsetenv("LT_SHARED")

	require.NoError(t, LoadEnv("test"))
	assert.Equal(t, "base", GetEnv("LT_FROM_BASE"))
	assert.Equal(t, "test", GetEnv("LT_SHARED"))
}

func TestInitDatabase_SQLiteMemory(t *testing.T) {
	db, err := InitDatabase(nil, "sqlite", "")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}

func TestInitDatabase_UnknownDriver(t *testing.T) {
	_, err := InitDatabase(nil, "oracle", "x")
	assert.Error(t, err)
}
