package rules

import (
	"fmt"
	"strings"
)

// Step is the broad stage of a started game.
type Step int

const (
	StepSetup Step = iota
	StepPlay
)

var stepNames = map[Step]string{
	StepSetup: "SETUP",
	StepPlay:  "PLAY",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// ParseStep converts a step name back to a Step.
func ParseStep(name string) (Step, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for step, n := range stepNames {
		if n == upper {
			return step, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

func (s Step) MarshalText() ([]byte, error) {
	if _, ok := stepNames[s]; !ok {
		return nil, fmt.Errorf("unknown step %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	step, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = step
	return nil
}

// NextIndex returns the seat after index in a table of n players.
func NextIndex(index, n int) int {
	if n <= 0 {
		return 0
	}
	return (index + 1) % n
}

// PrevIndex returns the seat before index in a table of n players.
func PrevIndex(index, n int) int {
	if n <= 0 {
		return 0
	}
	return (index - 1 + n) % n
}
