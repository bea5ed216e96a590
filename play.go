package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mindreader/db"
	"mindreader/game"
	"mindreader/logger"
	"mindreader/ml"
)

func init() {
	zh := language.Chinese
	message.SetString(zh, "Playing against %s with %d options.\n", "对手: %s, 选项数: %d。\n")
	message.SetString(zh, "Pick 0-%d (r reset, p NAME predictor, n N options, s score, q quit): ", "选择 0-%d (r 重置, p 名称 切换预测器, n 数量 选项数, s 比分, q 退出): ")
	message.SetString(zh, "Machine predicted %d, you chose %d. %s\n", "机器预测 %d, 你选了 %d。%s\n")
	message.SetString(zh, "Machine wins.", "机器赢了。")
	message.SetString(zh, "You win.", "你赢了。")
	message.SetString(zh, "Score: you %d, machine %d (machine accuracy %.1f%%)\n", "比分: 你 %d, 机器 %d (机器准确率 %.1f%%)\n")
	message.SetString(zh, "Invalid input: %v\n", "输入无效: %v\n")
	message.SetString(zh, "Session reset.\n", "对局已重置。\n")
	message.SetString(zh, "Available predictors: %s\n", "可用预测器: %s\n")
	message.SetString(zh, "Bye.\n", "再见。\n")
}

func newPlayCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play rounds in the terminal",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, _, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if lang != "" {
				cfg.Game.Language = lang
			}
			// 终端里只输出错误日志
			cfg.Log.Level = "error"
			cfg.Log.Console = true

			log, _, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := db.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer func() {
				err = multierr.Append(err, store.Close())
			}()

			registry := ml.NewRegistry(cfg.Predictors, log.Named("ml"))
			g, err := game.NewGame(cmd.Context(), registry, store, cfg.Game, log.Named("game"))
			if err != nil {
				return err
			}

			printer := message.NewPrinter(language.Make(cfg.Game.Language))
			return runPlayLoop(cmd.Context(), g, cmd.InOrStdin(), cmd.OutOrStdout(), printer)
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "override game.language (en, zh)")
	return cmd
}

// runPlayLoop 逐行读取输入并推进对局, 输入结束或 q 时返回
func runPlayLoop(ctx context.Context, g *game.Game, in io.Reader, out io.Writer, p *message.Printer) error {
	state := g.State()
	p.Fprintf(out, "Playing against %s with %d options.\n", state.Predictor, state.OptionCount)

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.Fprintf(out, "Pick 0-%d (r reset, p NAME predictor, n N options, s score, q quit): ", g.State().OptionCount-1)
		if !scanner.Scan() {
			p.Fprintf(out, "Bye.\n")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":
			continue
		case "q", "quit":
			p.Fprintf(out, "Bye.\n")
			return nil
		case "r", "reset":
			g.Reset()
			p.Fprintf(out, "Session reset.\n")
		case "s", "score":
			printScore(out, p, g.State())
		case "p", "predictor":
			if arg == "" {
				p.Fprintf(out, "Available predictors: %s\n", strings.Join(g.State().AvailablePredictors, ", "))
				continue
			}
			name := g.SelectPredictor(ctx, arg)
			p.Fprintf(out, "Playing against %s with %d options.\n", name, g.State().OptionCount)
		case "n", "options":
			n, err := strconv.Atoi(arg)
			if err == nil {
				err = g.SetOptionCount(n)
			}
			if err != nil {
				p.Fprintf(out, "Invalid input: %v\n", err)
				continue
			}
			p.Fprintf(out, "Playing against %s with %d options.\n", g.State().Predictor, n)
		default:
			choice, err := strconv.Atoi(cmd)
			if err != nil {
				p.Fprintf(out, "Invalid input: %v\n", fmt.Errorf("%w: %q", game.ErrInvalidChoice, line))
				continue
			}
			round, err := g.Play(ctx, choice)
			if errors.Is(err, game.ErrInvalidChoice) {
				p.Fprintf(out, "Invalid input: %v\n", err)
				continue
			}
			if err != nil {
				return err
			}
			verdict := p.Sprintf("You win.")
			if round.Correct {
				verdict = p.Sprintf("Machine wins.")
			}
			p.Fprintf(out, "Machine predicted %d, you chose %d. %s\n", round.Prediction, round.UserChoice, verdict)
			printScore(out, p, g.State())
		}
	}
}

func printScore(out io.Writer, p *message.Printer, state game.State) {
	accuracy := 0.0
	if total := state.HumanScore + state.MachineScore; total > 0 {
		accuracy = 100 * float64(state.MachineScore) / float64(total)
	}
	p.Fprintf(out, "Score: you %d, machine %d (machine accuracy %.1f%%)\n", state.HumanScore, state.MachineScore, accuracy)
}
