package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mindreader/config"
	"mindreader/db"
	"mindreader/logger"
	"mindreader/ml"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	rounds := flag.Int("rounds", 300, "rounds per predictor/player pair")
	options := flag.Int("options", 2, "option count")
	seed := flag.Uint64("seed", 1, "seed for the biased player and neural weights")
	save := flag.Bool("save", false, "append results to bench_log")
	flag.Parse()

	cfg, err := loadBenchConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.Log.Console = true

	log, _, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if *options < config.MinOptions || *options > config.MaxOptions {
		log.Fatal("option count out of range", zap.Int("options", *options))
	}
	if *rounds <= 0 {
		log.Fatal("rounds must be positive", zap.Int("rounds", *rounds))
	}
	cfg.Predictors.Neural.Seed = *seed

	ctx := context.Background()
	start := time.Now()
	outcomes, err := runBench(ctx, cfg.Predictors, *rounds, *options, *seed)
	if err != nil {
		log.Fatal("benchmark failed", zap.Error(err))
	}
	log.Info("benchmark finished", zap.Int("runs", len(outcomes)), zap.Duration("elapsed", time.Since(start)))

	printOutcomes(os.Stdout, outcomes, *options)

	if *save {
		if err := saveOutcomes(ctx, cfg.Database.Path, outcomes, *options); err != nil {
			log.Fatal("failed to save results", zap.Error(err))
		}
		fmt.Printf("results saved to %s\n", cfg.Database.Path)
	}
}

// loadBenchConfig 配置文件不存在时使用默认值, 其他错误直接返回
func loadBenchConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// runBench 每个 预测器 x 玩家 组合使用全新的预测器实例并行运行
func runBench(ctx context.Context, cfg config.PredictorsConfig, rounds, optionCount int, seed uint64) ([]outcome, error) {
	names := ml.NewRegistry(cfg, nil).Names()
	players := newPlayers(seed)

	var (
		mu       sync.Mutex
		outcomes []outcome
	)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())

	for _, name := range names {
		for _, newPlayer := range players {
			group.Go(func() error {
				p := ml.NewRegistry(cfg, nil).Create(name)
				res, err := simulate(gctx, p, newPlayer(), rounds, optionCount)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				mu.Lock()
				outcomes = append(outcomes, res)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(outcomes, func(i, j int) bool {
		if outcomes[i].predictor != outcomes[j].predictor {
			return outcomes[i].predictor < outcomes[j].predictor
		}
		return outcomes[i].player < outcomes[j].player
	})
	return outcomes, nil
}

func printOutcomes(out io.Writer, outcomes []outcome, optionCount int) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "PREDICTOR\tPLAYER\tROUNDS\tACCURACY\tCHANCE\tFAILURES\n")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.3f\t%.3f\t%d\n",
			o.predictor, o.player, o.rounds, o.accuracy(), 1/float64(optionCount), o.failures)
	}
	w.Flush()
}

func saveOutcomes(ctx context.Context, path string, outcomes []outcome, optionCount int) error {
	store, err := db.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	results := make([]db.BenchResult, 0, len(outcomes))
	for _, o := range outcomes {
		results = append(results, db.BenchResult{
			Predictor:   o.predictor,
			Player:      o.player,
			OptionCount: optionCount,
			Rounds:      o.rounds,
			Accuracy:    o.accuracy(),
		})
	}
	return store.SaveBenchResults(ctx, results)
}
