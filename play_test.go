package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mindreader/config"
	"mindreader/game"
	"mindreader/ml"
)

func newPlayGame(t *testing.T) *game.Game {
	t.Helper()
	cfg := config.Default()
	g, err := game.NewGame(context.Background(), ml.NewRegistry(cfg.Predictors, nil), nil, cfg.Game, nil)
	require.NoError(t, err)
	return g
}

func TestPlayLoopRounds(t *testing.T) {
	g := newPlayGame(t)
	in := strings.NewReader("1\n1\nbanana\n5\ns\nq\n1\n")
	var out bytes.Buffer

	err := runPlayLoop(context.Background(), g, in, &out, message.NewPrinter(language.English))
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Playing against Markov Chain with 2 options.")
	assert.Contains(t, text, "Machine predicted 0, you chose 1. You win.")
	assert.Contains(t, text, "Machine predicted 1, you chose 1. Machine wins.")
	assert.Equal(t, 2, strings.Count(text, "Invalid input"))
	assert.Contains(t, text, "Score: you 1, machine 1 (machine accuracy 50.0%)")
	assert.Len(t, g.State().History, 2, "input after q is ignored")
}

func TestPlayLoopCommands(t *testing.T) {
	g := newPlayGame(t)
	in := strings.NewReader("p\np Decay-Weighted\nn 3\n2\nr\nn 9\n")
	var out bytes.Buffer

	require.NoError(t, runPlayLoop(context.Background(), g, in, &out, message.NewPrinter(language.English)))

	text := out.String()
	assert.Contains(t, text, "Available predictors: Markov Chain, Frequency, Decay-Weighted, Neural Network")
	assert.Contains(t, text, "Session reset.")
	assert.Contains(t, text, "Bye.")

	state := g.State()
	assert.Equal(t, 3, state.OptionCount)
	assert.Empty(t, state.History)
}

func TestPlayLoopChinese(t *testing.T) {
	g := newPlayGame(t)
	var out bytes.Buffer

	require.NoError(t, runPlayLoop(context.Background(), g, strings.NewReader("0\n"), &out, message.NewPrinter(language.Chinese)))
	assert.Contains(t, out.String(), "机器预测 0, 你选了 0。机器赢了。")
}
