package core

// Program is the derived, ready-to-play form of a WaveConfig.
// It is either a SquareProgram or a TableProgram.
type Program interface {
	// TickInterval returns the compare interval in clock cycles
	TickInterval(hw Hardware) uint32

	isProgram()
}

// SquareProgram toggles the output pin every Timing.RepeatCount ticks.
type SquareProgram struct {
	Timing SquareTiming
}

func (SquareProgram) isProgram() {}

func (sp SquareProgram) TickInterval(hw Hardware) uint32 {
	return uint32(sp.Timing.Interval)
}

// TableProgram plays Table, holding each sample for Params.Scale ticks.
type TableProgram struct {
	Table  *SampleTable
	Params TableParams
}

func (TableProgram) isProgram() {}

func (tp TableProgram) TickInterval(hw Hardware) uint32 {
	return hw.TablePrescaler
}

// Player is the two-level clock divider behind the timer interrupt.
// Apply runs in the main context, Tick in the interrupt context.
type Player struct {
	hw    Hardware
	out   OutputDriver
	ticks TickDriver

	// Two arenas so a new table is never written while it is being played
	tables [2]SampleTable
	spare  uint8

	program Program
	config  WaveConfig
	comp    ComplementDriver

	// Playback state, owned by Tick
	step     uint16
	position uint16
	phase    bool
}

// NewPlayer creates a player with no program; Tick is a no-op until Apply succeeds.
func NewPlayer(hw Hardware, out OutputDriver, ticks TickDriver) (*Player, error) {
	if err := hw.Validate(); err != nil {
		return nil, err
	}
	return &Player{hw: hw, out: out, ticks: ticks}, nil
}

// Hardware returns the timer description the player resolves against.
func (p *Player) Hardware() Hardware {
	return p.hw
}

// Config returns the active configuration and whether one is active.
func (p *Player) Config() (WaveConfig, bool) {
	return p.config, p.program != nil
}

// Program returns the active program or nil.
func (p *Player) Program() Program {
	return p.program
}

// Resolve derives the program for cfg without touching the active one.
// Table shapes are generated into the spare arena.
func (p *Player) Resolve(cfg WaveConfig) (Program, error) {
	switch cfg.Shape {
	case ShapeSquare:
		timing, err := ResolveSquare(cfg.Frequency, p.hw)
		if err != nil {
			return nil, err
		}
		return SquareProgram{Timing: timing}, nil

	case ShapeSine, ShapeSaw:
		params, err := ResolveTable(cfg.Frequency, p.hw)
		if err != nil {
			return nil, err
		}
		table := &p.tables[p.spare]
		if err := table.Fill(cfg.Shape, params.Length); err != nil {
			return nil, err
		}
		return TableProgram{Table: table, Params: params}, nil
	}

	return nil, ErrUnknownShape
}

// Apply resolves cfg and swaps it in. On error the previous program keeps
// playing untouched.
func (p *Player) Apply(cfg WaveConfig) error {
	prog, err := p.Resolve(cfg)
	if err != nil {
		RecordEvent(EvtReject, uint8(cfg.Shape), float32Bits(cfg.Frequency), 0)
		return err
	}

	var comp ComplementDriver
	if cfg.Bidirectional {
		comp, _ = p.out.(ComplementDriver)
	}

	if err := p.publish(prog, cfg, comp); err != nil {
		RecordEvent(EvtReject, uint8(cfg.Shape), float32Bits(cfg.Frequency), 1)
		return err
	}

	switch pr := prog.(type) {
	case SquareProgram:
		RecordEvent(EvtApply, uint8(cfg.Shape), uint32(pr.Timing.RepeatCount), uint32(pr.Timing.Interval))
	case TableProgram:
		RecordEvent(EvtApply, uint8(cfg.Shape), uint32(pr.Params.Scale), uint32(pr.Params.Length))
	}
	return nil
}

// publish installs prog with the tick interrupt masked and restarts playback.
func (p *Player) publish(prog Program, cfg WaveConfig, comp ComplementDriver) error {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if err := p.ticks.ConfigureTicks(prog.TickInterval(p.hw)); err != nil {
		return err
	}

	p.program = prog
	p.config = cfg
	p.comp = comp
	p.step = 0
	p.position = 0
	p.phase = false

	if _, ok := prog.(TableProgram); ok {
		p.spare ^= 1
	}
	return nil
}

// Tick advances playback by one timer tick. Call it from the compare-match
// interrupt handler.
func (p *Player) Tick() {
	enterISR()

	switch prog := p.program.(type) {
	case TableProgram:
		if p.step == 0 {
			lvl := prog.Table.At(p.position)
			p.out.SetPWMLevel(lvl)
			if p.comp != nil {
				p.comp.SetComplementLevel(MaxLevel - lvl)
			}

			p.position++
			if p.position >= prog.Table.Len() {
				p.position = 0
			}
		}

		p.step++
		if p.step >= uint16(prog.Params.Scale) {
			p.step = 0
		}

	case SquareProgram:
		if p.step == 0 {
			p.out.TogglePin()
			p.phase = !p.phase
		}

		p.step++
		if p.step >= uint16(prog.Timing.RepeatCount) {
			p.step = 0
		}
	}

	exitISR()
}
