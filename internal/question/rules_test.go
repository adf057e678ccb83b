package question

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()
	require.Equal(t, 4, r.MinWords)
	require.NotEmpty(t, r.Banners)
	require.NotEmpty(t, r.Greetings)
}

func TestParseRules_DefaultsMinWords(t *testing.T) {
	r, err := ParseRules([]byte("greetings: [\"yo\"]\n"))
	require.NoError(t, err)
	require.Equal(t, defaultMinWords, r.MinWords)
}

func TestParseRules_Malformed(t *testing.T) {
	_, err := ParseRules([]byte("banners: [unterminated"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode rules")
}

func TestLoadRules_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_words: 2\nbanners: [\"beep boop\"]\ngreetings: [\"yo\"]\n"), 0o600))

	r, err := LoadRules(path)
	require.NoError(t, err)
	e, err := Compile(r)
	require.NoError(t, err)

	require.True(t, e.IsGreeting("Yo!"))
	require.False(t, e.IsGreeting("hi"))
	require.Equal(t, "Go skills", e.Clean("Beep boop Go skills"))
}

func TestLoadRules_EmptyPathUsesDefaults(t *testing.T) {
	r, err := LoadRules(" ")
	require.NoError(t, err)
	require.Equal(t, DefaultRules(), r)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read rules file")
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(Rules{})
	require.Error(t, err)

	_, err = Compile(Rules{Greetings: []string{"hi"}, Banners: []string{"("}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "compile banner")

	_, err = Compile(Rules{Greetings: []string{"["}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "compile greeting")
}
