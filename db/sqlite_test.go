package db

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPreferenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if _, ok, err := store.LoadPreference(ctx, "selectedPredictor"); err != nil || ok {
		t.Fatalf("expected missing preference, got ok=%v err=%v", ok, err)
	}
	if err := store.SavePreference(ctx, "selectedPredictor", "Frequency"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SavePreference(ctx, "selectedPredictor", "Neural Network"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err := store.LoadPreference(ctx, "selectedPredictor")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if value != "Neural Network" {
		t.Fatalf("expected Neural Network, got %s", value)
	}
}

func TestPredictorStats(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	records := []RoundRecord{
		{SessionID: "a", Predictor: "Markov Chain", OptionCount: 2, UserChoice: 1, Prediction: 1, Correct: true},
		{SessionID: "a", Predictor: "Markov Chain", OptionCount: 2, UserChoice: 0, Prediction: 1, Correct: false},
		{SessionID: "b", Predictor: "Frequency", OptionCount: 2, UserChoice: 0, Prediction: 0, Correct: true},
	}
	for _, r := range records {
		if err := store.SaveRound(ctx, r); err != nil {
			t.Fatalf("save round: %v", err)
		}
	}

	stats, err := store.LoadPredictorStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 predictors, got %d", len(stats))
	}
	// ordered by name
	if stats[0].Predictor != "Frequency" || stats[0].Accuracy != 1 {
		t.Fatalf("unexpected frequency stats: %+v", stats[0])
	}
	if stats[1].Rounds != 2 || stats[1].Correct != 1 || stats[1].Accuracy != 0.5 {
		t.Fatalf("unexpected markov stats: %+v", stats[1])
	}
}

func TestBenchLog(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	results := []BenchResult{
		{Predictor: "Markov Chain", Player: "alternating", OptionCount: 2, Rounds: 100, Accuracy: 0.95},
		{Predictor: "Frequency", Player: "alternating", OptionCount: 2, Rounds: 100, Accuracy: 0.5},
	}
	if err := store.SaveBenchResults(ctx, results); err != nil {
		t.Fatalf("save bench: %v", err)
	}
	loaded, err := store.LoadBenchLog(ctx, 10)
	if err != nil {
		t.Fatalf("load bench: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(loaded))
	}
	if loaded[0].Predictor != "Frequency" {
		t.Fatalf("expected newest row first, got %s", loaded[0].Predictor)
	}
}

func TestClosedStore(t *testing.T) {
	store := openTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := store.SavePreference(context.Background(), "k", "v"); !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestCloseConcurrentWithQueries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.SavePreference(ctx, "k", "v")
				store.LoadPreference(ctx, "k")
			}
		}()
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	wg.Wait()

	if _, _, err := store.LoadPreference(ctx, "k"); !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed after close, got %v", err)
	}
}
