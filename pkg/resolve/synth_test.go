package resolve

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeOpenApplication(t *testing.T) {
	auto := &fakeController{}
	s := NewSynthesizer(auto, t.TempDir())

	ok := s.TrySynthesize(context.Background(), "open notepad", "")

	require.True(t, ok)
	assert.Equal(t, []string{"open:notepad"}, auto.calls)
}

func TestSynthesizeCategories(t *testing.T) {
	cases := []struct {
		command string
		want    string
	}{
		{"launch the calculator", "open:calculator"},
		{"quit spotify", "close:spotify"},
		{"search for golang tutorials", "search:golang tutorials"},
		{"type 'hello world'", "type:hello world"},
		{"write a note", "type:a note"},
		{"select the blue one", "click:left,1"},
		{"drag it to 300, 400", "move:300,400"},
	}
	for _, tc := range cases {
		t.Run(tc.command, func(t *testing.T) {
			auto := &fakeController{}
			ok := NewSynthesizer(auto, t.TempDir()).TrySynthesize(context.Background(), tc.command, "")
			require.True(t, ok)
			assert.Equal(t, []string{tc.want}, auto.calls)
		})
	}
}

func TestSynthesizeScreenshot(t *testing.T) {
	auto := &fakeController{}
	dir := t.TempDir()

	ok := NewSynthesizer(auto, dir).TrySynthesize(context.Background(), "capture screen", "")

	require.True(t, ok)
	require.Len(t, auto.calls, 1)
	assert.True(t, strings.HasPrefix(auto.calls[0], "screenshot:"+dir))
	assert.True(t, strings.HasSuffix(auto.calls[0], ".png"))
}

func TestSynthesizeMissingArgumentsFallsThrough(t *testing.T) {
	auto := &fakeController{}
	s := NewSynthesizer(auto, t.TempDir())

	assert.False(t, s.TrySynthesize(context.Background(), "open", ""))
	assert.False(t, s.TrySynthesize(context.Background(), "drag it around", ""))
	assert.Empty(t, auto.calls)
}

func TestSynthesizeNoCategory(t *testing.T) {
	auto := &fakeController{}
	s := NewSynthesizer(auto, t.TempDir())

	assert.False(t, s.TrySynthesize(context.Background(), "sing me a song", ""))
	assert.Empty(t, auto.calls)
}

func TestSynthesizeTableOrderBreaksTies(t *testing.T) {
	auto := &fakeController{}
	s := NewSynthesizer(auto, t.TempDir())

	// Both "open" and "search" match; the open row comes first.
	ok := s.TrySynthesize(context.Background(), "open chrome and search for cats", "")

	require.True(t, ok)
	require.Len(t, auto.calls, 1)
	assert.True(t, strings.HasPrefix(auto.calls[0], "open:"))
}
