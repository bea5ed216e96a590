package http

import (
	"context"
	"errors"
	"fmt"

	"mindreader/game"
	"mindreader/monitoring"
)

// 指令类型, HTTP 与 WebSocket 共用
const (
	CommandChoice  = "choice"
	CommandSelect  = "select"
	CommandReset   = "reset"
	CommandOptions = "options"
	CommandState   = "state"
)

var ErrUnknownCommand = errors.New("unknown command")

// ChoiceResult 一个回合的结果和之后的对局状态
type ChoiceResult struct {
	Round game.Round `json:"round"`
	State game.State `json:"state"`
}

// HandleCommand 执行一条指令; 可直接作为 WebSocketHub 的处理器
func (a *API) HandleCommand(ctx context.Context, cmd monitoring.Command) (monitoring.MessageType, any, error) {
	switch cmd.Type {
	case CommandChoice:
		if cmd.Choice == nil {
			return "", nil, fmt.Errorf("%w: choice is required", game.ErrInvalidChoice)
		}
		round, err := a.Game.Play(ctx, *cmd.Choice)
		if err != nil {
			return "", nil, err
		}
		return monitoring.RoundMessage, ChoiceResult{Round: round, State: a.Game.State()}, nil

	case CommandSelect:
		a.Game.SelectPredictor(ctx, cmd.Predictor)
		return monitoring.PredictorMessage, a.Game.State(), nil

	case CommandReset:
		a.Game.Reset()
		return monitoring.StateMessage, a.Game.State(), nil

	case CommandOptions:
		if err := a.Game.SetOptionCount(cmd.OptionCount); err != nil {
			return "", nil, err
		}
		return monitoring.StateMessage, a.Game.State(), nil

	case CommandState:
		return monitoring.StateMessage, a.Game.State(), nil

	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}
