package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindreader/config"
	"mindreader/db"
	"mindreader/ml"
)

func TestMarkovBeatsAlternatingPlayer(t *testing.T) {
	p := ml.NewMarkovPredictor(ml.DefaultMarkovOrder, ml.DefaultMaxContexts)
	res, err := simulate(context.Background(), p, alternating{}, 200, 2)
	require.NoError(t, err)
	assert.Equal(t, 200, res.rounds)
	assert.Greater(t, res.accuracy(), 0.9)
}

func TestAntiMachineNeverLoses(t *testing.T) {
	cfg := config.Default()
	registry := ml.NewRegistry(cfg.Predictors, nil)
	for _, p := range registry.List() {
		res, err := simulate(context.Background(), p, antiMachine{}, 50, 3)
		require.NoError(t, err)
		assert.Zero(t, res.correct, p.Name())
	}
}

func TestPlayersStayInRange(t *testing.T) {
	for n := config.MinOptions; n <= config.MaxOptions; n++ {
		for _, newPlayer := range newPlayers(7) {
			pl := newPlayer()
			history := []int{}
			for i := 0; i < 30; i++ {
				c := pl.next(history, i%n, n)
				require.GreaterOrEqual(t, c, 0, pl.name())
				require.Less(t, c, n, pl.name())
				history = append(history, c)
			}
		}
	}
}

func TestRunBenchCoversEveryPair(t *testing.T) {
	cfg := config.Default()
	outcomes, err := runBench(context.Background(), cfg.Predictors, 40, 2, 3)
	require.NoError(t, err)
	assert.Len(t, outcomes, 16)
	for i := 1; i < len(outcomes); i++ {
		assert.LessOrEqual(t, outcomes[i-1].predictor, outcomes[i].predictor)
	}

	var buf bytes.Buffer
	printOutcomes(&buf, outcomes, 2)
	assert.Contains(t, buf.String(), "PREDICTOR")
	assert.Equal(t, 17, strings.Count(buf.String(), "\n"))

	path := filepath.Join(t.TempDir(), "bench.db")
	require.NoError(t, saveOutcomes(context.Background(), path, outcomes, 2))

	store, err := db.Open(path)
	require.NoError(t, err)
	defer store.Close()
	logged, err := store.LoadBenchLog(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, logged, 16)
}

func TestSimulateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := simulate(ctx, ml.NewFrequencyPredictor(), alternating{}, 10, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadBenchConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadBenchConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("game: [unclosed"), 0o644))
	_, err = loadBenchConfig(broken)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("game:\n  option_count: 1\n"), 0o644))
	_, err = loadBenchConfig(invalid)
	assert.Error(t, err)
}
