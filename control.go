package xm7

// Command is a deferred player control request.
// Use Player.Post to deliver it; it will be applied
// at the beginning of the next Tick call.
type Command struct {
	kind commandKind

	position     int
	replayStyle  ReplayStyle
	panningStyle PanningStyle
	displacement int
}

type commandKind uint8

const (
	commandPlay commandKind = iota
	commandStop
	commandReplayStyle
	commandPanningStyle
)

// PlayCommand starts the playback from the given order position.
func PlayCommand(position int) Command {
	return Command{kind: commandPlay, position: position}
}

// StopCommand stops the playback.
func StopCommand() Command {
	return Command{kind: commandStop}
}

// ReplayStyleCommand is a deferred SetReplayStyle call.
func ReplayStyleCommand(style ReplayStyle) Command {
	return Command{kind: commandReplayStyle, replayStyle: style}
}

// PanningStyleCommand is a deferred SetPanningStyle call.
func PanningStyleCommand(style PanningStyle, displacement int) Command {
	return Command{kind: commandPanningStyle, panningStyle: style, displacement: displacement}
}

// Post enqueues a control command without blocking.
//
// Post can be called from any goroutine concurrently with Tick.
// It returns false if the queue is full; the command is discarded then.
func (p *Player) Post(cmd Command) bool {
	select {
	case p.commands <- cmd:
		return true
	default:
		return false
	}
}

// drainCommands applies at most cap(commands) queued commands,
// so a busy producer can't stall the tick.
func (p *Player) drainCommands() {
	for i := 0; i < cap(p.commands); i++ {
		select {
		case cmd := <-p.commands:
			p.applyCommand(cmd)
		default:
			return
		}
	}
}

func (p *Player) applyCommand(cmd Command) {
	switch cmd.kind {
	case commandPlay:
		p.playFrom(cmd.position)
	case commandStop:
		p.stop()
	case commandReplayStyle:
		p.replayStyle = cmd.replayStyle
	case commandPanningStyle:
		p.setPanningStyle(cmd.panningStyle, cmd.displacement)
	}
}
