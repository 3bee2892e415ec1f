package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicModifierChord(t *testing.T) {
	auto := &fakeController{}
	h := NewHeuristic(auto)

	ok := h.TryDirect(context.Background(), "press ctrl+alt+t")

	require.True(t, ok)
	assert.Equal(t, []string{"hotkey:ctrl+alt+t"}, auto.calls)
}

func TestHeuristicSingleKeys(t *testing.T) {
	cases := []struct {
		command string
		want    string
	}{
		{"press enter", "press:enter"},
		{"press the escape key", "press:escape"},
		{"press the letter a", "press:a"},
		{"press the letter 'a'", "press:a"},
		{`press the "b" key`, "press:b"},
		{"press the spacebar", "press:space"},
		{"press page down", "press:pagedown"},
		{"press f5 key", "press:f5"},
	}
	for _, tc := range cases {
		t.Run(tc.command, func(t *testing.T) {
			auto := &fakeController{}
			ok := NewHeuristic(auto).TryDirect(context.Background(), tc.command)
			require.True(t, ok)
			assert.Equal(t, []string{tc.want}, auto.calls)
		})
	}
}

func TestHeuristicShiftedKey(t *testing.T) {
	auto := &fakeController{}
	ok := NewHeuristic(auto).TryDirect(context.Background(), "press shift tab")

	require.True(t, ok)
	assert.Equal(t, []string{"hotkey:shift+tab"}, auto.calls)
}

func TestHeuristicClicks(t *testing.T) {
	cases := []struct {
		command string
		want    string
	}{
		{"click", "click:left,1"},
		{"double click on it", "click:left,2"},
		{"right click there", "click:right,1"},
	}
	for _, tc := range cases {
		t.Run(tc.command, func(t *testing.T) {
			auto := &fakeController{}
			ok := NewHeuristic(auto).TryDirect(context.Background(), tc.command)
			require.True(t, ok)
			assert.Equal(t, []string{tc.want}, auto.calls)
		})
	}
}

func TestHeuristicMouseMove(t *testing.T) {
	auto := &fakeController{}
	ok := NewHeuristic(auto).TryDirect(context.Background(), "move the mouse to 100, 250")

	require.True(t, ok)
	assert.Equal(t, []string{"move:100,250"}, auto.calls)
}

func TestHeuristicDeclines(t *testing.T) {
	auto := &fakeController{}
	h := NewHeuristic(auto)

	assert.False(t, h.TryDirect(context.Background(), "make me a sandwich"))
	assert.False(t, h.TryDirect(context.Background(), "press harder"))
	assert.Empty(t, auto.calls)
}

func TestHeuristicFailureIsNotFatal(t *testing.T) {
	auto := &fakeController{fail: true}
	ok := NewHeuristic(auto).TryDirect(context.Background(), "press enter")
	assert.False(t, ok)
}
