package session

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDomainKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.example.gov/tender?type=open", "example.gov"},
		{"https://web.pcc.gov.tw/prkms/tender", "web.pcc.gov.tw"},
		{"http://WWW.Example.gov:8080/x", "example.gov:8080"},
		{"www.example.gov/path", "example.gov"},
		{"example.gov", "example.gov"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, DomainKey(tt.in), tt.in)
	}
}

func TestStore_LoadMissingIsAbsent(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cookies"), testLogger())

	state, ok, err := s.Load("example.gov")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, state.Cookies)
}

func TestStore_SaveCreatesDirAndRoundTrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cookies")
	s := NewStore(dir, testLogger())

	cookies := []Cookie{
		{Name: "JSESSIONID", Value: "abc", Domain: "example.gov", Path: "/", HTTPOnly: true},
		{Name: "lang", Value: "zh-TW", Domain: ".example.gov", Path: "/", Expires: 1.9e9},
	}
	_, err := s.Save("example.gov", cookies)
	require.NoError(t, err)

	_, err = os.Stat(s.Path("example.gov"))
	require.NoError(t, err)

	state, ok, err := s.Load("example.gov")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cookies, state.Cookies)
	require.Equal(t, "example.gov", state.Domain)
}

func TestStore_SaveIsAppendOnlyUnion(t *testing.T) {
	s := NewStore(t.TempDir(), testLogger())
	first := []Cookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}
	_, err := s.Save("example.gov", first)
	require.NoError(t, err)

	loaded, ok, err := s.Load("example.gov")
	require.NoError(t, err)
	require.True(t, ok)

	// Saving the same cookie again keeps both copies.
	state, err := s.Save("example.gov", []Cookie{{Name: "a", Value: "1"}, {Name: "c", Value: "3"}})
	require.NoError(t, err)
	require.Len(t, state.Cookies, 4)
	require.Subset(t, state.Cookies, loaded.Cookies)
	require.Equal(t, loaded.Cookies, state.Cookies[:len(loaded.Cookies)])
}

func TestStore_DomainsAreIsolated(t *testing.T) {
	s := NewStore(t.TempDir(), testLogger())
	_, err := s.Save("a.gov", []Cookie{{Name: "x"}})
	require.NoError(t, err)

	_, ok, err := s.Load("b.gov")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, testLogger())
	require.NoError(t, os.WriteFile(s.Path("example.gov"), []byte("not gob"), 0o600))

	_, _, err := s.Load("example.gov")
	require.Error(t, err)
}
