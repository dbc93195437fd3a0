package rules

import (
	"errors"
	"fmt"

	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// PhaseSpec is one phase of the turn and its ordered steps. A phase with no
// steps is itself the unit of selection.
type PhaseSpec struct {
	Name  string   `mapstructure:"name"`
	Steps []string `mapstructure:"steps"`
}

// DefaultPhases is the turn structure used when none is configured.
var DefaultPhases = []PhaseSpec{
	{Name: "Start", Steps: []string{"Ready", "Draw", "Produce"}},
	{Name: "Main"},
	{Name: "Battle", Steps: []string{"Attack", "Block", "Damage"}},
	{Name: "End", Steps: []string{"End", "Cleanup"}},
}

// NoStep is the step index of a stepless phase.
const NoStep = -1

// TurnState is the clock's position.
type TurnState struct {
	PhaseIndex   int
	StepIndex    int
	TurnNumber   int
	ActivePlayer zone.Player
}

// TurnEntered is the payload of EventTurnEntered and what observers receive.
type TurnEntered struct {
	State     TurnState
	Phase     string
	Step      string // empty for stepless phases
	Redisplay bool
}

// Observer reacts to the clock entering a step. Observers are invoked
// synchronously in registration order, at most once per
// (turn, active player, phase, step).
type Observer interface {
	OnEnter(TurnEntered)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(TurnEntered)

// OnEnter calls f.
func (f ObserverFunc) OnEnter(e TurnEntered) { f(e) }

type firedKey struct {
	turn   int
	active zone.Player
	phase  int
	step   int
}

// Clock walks the phase/step sequence. It is not safe for concurrent use;
// the engine serializes access.
type Clock struct {
	phases        []PhaseSpec
	state         TurnState
	firstPlayer   zone.Player
	opponentBoard bool
	observers     []Observer
	fired         map[firedKey]bool
	bus           *EventBus
}

// NewClock validates phases and returns a clock at its initial position.
func NewClock(phases []PhaseSpec, bus *EventBus) (*Clock, error) {
	if len(phases) == 0 {
		phases = DefaultPhases
	}
	cp := make([]PhaseSpec, len(phases))
	for i, p := range phases {
		if p.Name == "" {
			return nil, fmt.Errorf("phase %d has no name", i)
		}
		cp[i] = PhaseSpec{Name: p.Name, Steps: append([]string(nil), p.Steps...)}
		for j, s := range p.Steps {
			if s == "" {
				return nil, fmt.Errorf("phase %s step %d has no name", p.Name, j)
			}
		}
	}
	c := &Clock{
		phases: cp,
		fired:  make(map[firedKey]bool),
		bus:    bus,
	}
	c.Reset(zone.Self)
	return c, nil
}

// ErrNoSuchPosition is returned by JumpTo for an index outside the sequence.
var ErrNoSuchPosition = errors.New("no such phase or step")

// Phases returns a copy of the configured phases.
func (c *Clock) Phases() []PhaseSpec {
	out := make([]PhaseSpec, len(c.phases))
	for i, p := range c.phases {
		out[i] = PhaseSpec{Name: p.Name, Steps: append([]string(nil), p.Steps...)}
	}
	return out
}

// TotalSteps is the number of advances in one full cycle.
func (c *Clock) TotalSteps() int {
	n := 0
	for _, p := range c.phases {
		if len(p.Steps) == 0 {
			n++
		} else {
			n += len(p.Steps)
		}
	}
	return n
}

// AddObserver registers o after any existing observers.
func (c *Clock) AddObserver(o Observer) {
	if o != nil {
		c.observers = append(c.observers, o)
	}
}

// SetOpponentBoard toggles shared turn counting between both sides. Before
// the first wrap the active side follows the new mode.
func (c *Clock) SetOpponentBoard(on bool) {
	c.opponentBoard = on
	if c.state.TurnNumber == 1 && c.atInitial() {
		c.state.ActivePlayer = c.openingSide()
	}
}

// OpponentBoard reports whether shared turn counting is active.
func (c *Clock) OpponentBoard() bool {
	return c.opponentBoard
}

// FirstPlayer returns the side that goes first.
func (c *Clock) FirstPlayer() zone.Player {
	return c.firstPlayer
}

// State returns the current position.
func (c *Clock) State() TurnState {
	return c.state
}

// TurnNumber returns the current turn number (1-based).
func (c *Clock) TurnNumber() int {
	return c.state.TurnNumber
}

// ActivePlayer returns the side whose turn it is.
func (c *Clock) ActivePlayer() zone.Player {
	return c.state.ActivePlayer
}

// Current returns the names of the current phase and step.
func (c *Clock) Current() (phase, step string) {
	p := c.phases[c.state.PhaseIndex]
	if c.state.StepIndex == NoStep {
		return p.Name, ""
	}
	return p.Name, p.Steps[c.state.StepIndex]
}

func (c *Clock) firstStep(phase int) int {
	if len(c.phases[phase].Steps) == 0 {
		return NoStep
	}
	return 0
}

func (c *Clock) atInitial() bool {
	return c.state.PhaseIndex == 0 && c.state.StepIndex == c.firstStep(0)
}

// openingSide is the active side on turn one. Without a shared opponent
// board every turn belongs to the local player, whoever went first.
func (c *Clock) openingSide() zone.Player {
	if c.opponentBoard {
		return c.firstPlayer
	}
	return zone.Self
}

// Reset returns the clock to its initial state with first going first. It
// emits nothing; call Start to enter the initial step.
func (c *Clock) Reset(first zone.Player) {
	c.firstPlayer = first
	c.state = TurnState{
		PhaseIndex: 0,
		StepIndex:  c.firstStep(0),
		TurnNumber: 1,
	}
	c.state.ActivePlayer = c.openingSide()
	c.fired = make(map[firedKey]bool)
}

// Start enters the current position, firing reactions if not yet fired.
func (c *Clock) Start() TurnEntered {
	return c.enter(false)
}

// Advance moves to the next step, or to the first step of the next phase,
// wrapping after the last phase.
func (c *Clock) Advance() TurnEntered {
	phase := c.phases[c.state.PhaseIndex]
	if c.state.StepIndex != NoStep && c.state.StepIndex+1 < len(phase.Steps) {
		c.state.StepIndex++
	} else {
		c.state.PhaseIndex = (c.state.PhaseIndex + 1) % len(c.phases)
		c.state.StepIndex = c.firstStep(c.state.PhaseIndex)
	}
	if c.atInitial() {
		c.wrap()
	}
	return c.enter(false)
}

// EndTurn jumps to the first step of the terminal phase, or wraps to the
// initial step when already inside the terminal phase.
func (c *Clock) EndTurn() TurnEntered {
	last := len(c.phases) - 1
	if c.state.PhaseIndex == last {
		c.state.PhaseIndex = 0
		c.state.StepIndex = c.firstStep(0)
		c.wrap()
	} else {
		c.state.PhaseIndex = last
		c.state.StepIndex = c.firstStep(last)
	}
	return c.enter(false)
}

// JumpTo moves within the current turn without wrapping. Reactions for a
// position already entered this turn do not fire again.
func (c *Clock) JumpTo(phaseIndex, stepIndex int) (TurnEntered, error) {
	if phaseIndex < 0 || phaseIndex >= len(c.phases) {
		return TurnEntered{}, fmt.Errorf("phase %d: %w", phaseIndex, ErrNoSuchPosition)
	}
	steps := c.phases[phaseIndex].Steps
	if len(steps) == 0 {
		stepIndex = NoStep
	} else if stepIndex < 0 || stepIndex >= len(steps) {
		return TurnEntered{}, fmt.Errorf("phase %s step %d: %w", c.phases[phaseIndex].Name, stepIndex, ErrNoSuchPosition)
	}
	c.state.PhaseIndex = phaseIndex
	c.state.StepIndex = stepIndex
	return c.enter(false), nil
}

// Redisplay re-emits EventTurnEntered for the current position without
// firing reactions.
func (c *Clock) Redisplay() TurnEntered {
	return c.enter(true)
}

func (c *Clock) wrap() {
	if c.opponentBoard {
		c.state.ActivePlayer = c.state.ActivePlayer.Other()
		if c.state.ActivePlayer == c.firstPlayer {
			c.state.TurnNumber++
		}
	} else {
		c.state.TurnNumber++
	}
	c.fired = make(map[firedKey]bool)

	if c.bus != nil {
		evt := NewEventWithAmount(EventTurnWrapped, "", c.state.ActivePlayer.String(), c.state.TurnNumber)
		evt.Payload = c.state
		evt.Description = fmt.Sprintf("Turn %d begins for %s", c.state.TurnNumber, c.state.ActivePlayer)
		c.bus.Publish(evt)
	}
}

func (c *Clock) enter(redisplay bool) TurnEntered {
	phase, step := c.Current()
	entered := TurnEntered{
		State:     c.state,
		Phase:     phase,
		Step:      step,
		Redisplay: redisplay,
	}

	if c.bus != nil {
		evt := NewEventWithAmount(EventTurnEntered, "", c.state.ActivePlayer.String(), c.state.TurnNumber)
		evt.Data = phase
		if step != "" {
			evt.Data = phase + "/" + step
		}
		evt.Payload = entered
		evt.Metadata["phase"] = phase
		evt.Metadata["step"] = step
		c.bus.Publish(evt)
	}

	if redisplay {
		return entered
	}
	key := firedKey{
		turn:   c.state.TurnNumber,
		active: c.state.ActivePlayer,
		phase:  c.state.PhaseIndex,
		step:   c.state.StepIndex,
	}
	if c.fired[key] {
		return entered
	}
	c.fired[key] = true
	for _, o := range c.observers {
		o.OnEnter(entered)
	}
	return entered
}
