package coordinator

import (
	"time"

	"github.com/tkahng/gamecore/game"
)

// startTickDriver launches the per-room tick loop in its own goroutine,
// mirroring app.py's socketio.start_background_task(play_game, ...).
func (c *Coordinator) startTickDriver(inst game.Instance) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runTickLoop(inst)
	}()
}

// runTickLoop drives one room from activation to DONE/INACTIVE, mirroring
// play_game: tick under the game lock, broadcast the result, sleep for
// 1/fps (or the reset timeout after a RESET tick), and repeat. The server-
// wide maxFPS, if set, caps whatever FPS the room itself declares.
func (c *Coordinator) runTickLoop(inst game.Instance) {
	fps := inst.FPS()
	if c.maxFPS > 0 && fps > c.maxFPS {
		fps = c.maxFPS
	}
	if fps <= 0 {
		fps = 1
	}
	interval := time.Second / time.Duration(fps)

	for {
		inst.Lock()
		status, err := inst.Tick()
		inst.Unlock()

		if err != nil {
			c.logger.Error("game tick failed", "room", inst.ID(), "err", err)
			c.broadcaster.BroadcastToRoom(inst.ID(), "game_error", err.Error())
			c.finishGame(inst, game.StatusInactive)
			return
		}

		switch status {
		case game.StatusReset:
			inst.Lock()
			data := inst.GetData()
			wire := inst.ToJSON()
			resetMillis := inst.ResetTimeoutMillis()
			inst.Unlock()
			c.broadcaster.BroadcastToRoom(inst.ID(), "reset_game", map[string]any{
				"state":                 wire,
				"data":                  data,
				"reset_timeout_millis": resetMillis,
			})
			time.Sleep(time.Duration(resetMillis) * time.Millisecond)
		case game.StatusDone, game.StatusInactive:
			c.finishGame(inst, status)
			return
		default:
			c.broadcaster.BroadcastToRoom(inst.ID(), "state_pong", inst.GetState())
		}

		time.Sleep(interval)
	}
}

// finishGame broadcasts end_game before tearing the room down, so every
// observer always receives a final state ahead of the room closing —
// including on the Active->Empty leave path, where Leave only deactivates
// and leaves this loop to notice and finish.
func (c *Coordinator) finishGame(inst game.Instance, status game.Status) {
	inst.Lock()
	data := inst.GetData()
	stillActive := inst.IsActive()
	inst.Unlock()

	c.broadcaster.BroadcastToRoom(inst.ID(), "end_game", map[string]any{"status": string(status), "data": data})

	if stillActive {
		inst.Lock()
		_ = inst.Deactivate()
		inst.Unlock()
	}
	c.cleanupGame(inst)
}
