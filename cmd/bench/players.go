package main

import (
	"context"
	"math/rand/v2"

	"mindreader/ml"
)

// player 模拟玩家; prediction 是机器在本回合给出的预测
type player interface {
	name() string
	next(history []int, prediction, optionCount int) int
}

// alternating 依次轮换所有选项
type alternating struct{}

func (alternating) name() string { return "alternating" }

func (alternating) next(history []int, _, optionCount int) int {
	return len(history) % optionCount
}

// repeating 重复固定模式
type repeating struct {
	pattern []int
}

func (repeating) name() string { return "pattern" }

func (p repeating) next(history []int, _, optionCount int) int {
	return p.pattern[len(history)%len(p.pattern)] % optionCount
}

// biased 以 bias 的概率选 0, 其余均匀随机
type biased struct {
	bias float64
	rng  *rand.Rand
}

func (biased) name() string { return "biased" }

func (p biased) next(_ []int, _, optionCount int) int {
	if p.rng.Float64() < p.bias {
		return 0
	}
	return p.rng.IntN(optionCount)
}

// antiMachine 偷看预测并避开它, 机器准确率应接近 0
type antiMachine struct{}

func (antiMachine) name() string { return "anti-machine" }

func (antiMachine) next(_ []int, prediction, optionCount int) int {
	return (prediction + 1) % optionCount
}

func newPlayers(seed uint64) []func() player {
	return []func() player{
		func() player { return alternating{} },
		func() player { return repeating{pattern: []int{0, 0, 1}} },
		func() player { return biased{bias: 0.7, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} },
		func() player { return antiMachine{} },
	}
}

type outcome struct {
	predictor string
	player    string
	rounds    int
	correct   int
	failures  int
}

func (o outcome) accuracy() float64 {
	if o.rounds == 0 {
		return 0
	}
	return float64(o.correct) / float64(o.rounds)
}

// simulate 用同一套回合流程驱动预测器: 预测, 揭晓, 更新
func simulate(ctx context.Context, p ml.Predictor, pl player, rounds, optionCount int) (outcome, error) {
	res := outcome{predictor: p.Name(), player: pl.name()}
	history := make([]int, 0, rounds)

	for i := 0; i < rounds; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		prediction := p.Predict(history, optionCount)
		choice := pl.next(history, prediction, optionCount)
		if prediction == choice {
			res.correct++
		}
		res.rounds++
		if err := p.Update(ctx, history, choice); err != nil {
			res.failures++
		}
		history = append(history, choice)
	}
	return res, nil
}
