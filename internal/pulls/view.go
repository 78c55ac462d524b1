package pulls

import (
	"fmt"

	"gacha-summon/internal/catalog"
)

// SlotOption is an unrevealed slot the order may reveal next. Only the pool
// is shown so the product stays hidden.
type SlotOption struct {
	Index int          `json:"index"`
	Pool  catalog.Pool `json:"pool"`
}

type RevealedSlot struct {
	Index   int             `json:"index"`
	Product catalog.Product `json:"product"`
}

// View is what an order may see and do next.
type View struct {
	RemainingSingles int            `json:"remainingSingles"`
	RemainingBulks   int            `json:"remainingBulks"`
	Active           Kind           `json:"active"`
	Revealed         []RevealedSlot `json:"revealed"`
	Revealable       []SlotOption   `json:"revealable"`
	CanStartSingle   bool           `json:"canStartSingle"`
	CanStartBulk     bool           `json:"canStartBulk"`
	CanShare         bool           `json:"canShare"`
	Messages         []string       `json:"messages"`
}

func (p *PullsData) View() View {
	singles := p.RemainingSingles()
	bulks := p.RemainingBulks()
	v := View{
		RemainingSingles: singles,
		RemainingBulks:   bulks,
		Active:           KindOf(p.Active),
		Revealed:         []RevealedSlot{},
		Revealable:       []SlotOption{},
	}

	var canStart, canContinue bool
	switch a := p.Active.(type) {
	case Single:
		canStart = a.Banner.Pulled() > 0
		canContinue = !a.Banner.Full() && singles > 0
	case Bulk:
		canStart = a.Banner.Full()
		canContinue = !a.Banner.Full()
	default:
		canStart = true
	}
	v.CanStartSingle = canStart && singles > 0
	v.CanStartBulk = canStart && bulks > 0

	if banner, ok := activeBanner(p.Active); ok {
		v.CanShare = true
		for i, slot := range banner.Slots {
			switch {
			case banner.Revealed[i]:
				v.Revealed = append(v.Revealed, RevealedSlot{Index: i, Product: slot})
			case canContinue:
				v.Revealable = append(v.Revealable, SlotOption{Index: i, Pool: slot.Pool})
			}
		}
	}

	v.Messages = append(v.Messages, fmt.Sprintf("You have %d full summons and %d single summons remaining.", bulks, singles))
	if canContinue && canStart {
		v.Messages = append(v.Messages, "You may continue making single summons from the current pool or choose to start a new one.")
	}
	if _, bulk := p.Active.(Bulk); bulk && canContinue {
		v.Messages = append(v.Messages, "You have started a full summon. Choose an option to continue.")
	}
	if canStart && KindOf(p.Active) == KindNone {
		v.Messages = append(v.Messages, "Choose an option to begin summoning.")
	} else if canStart {
		v.Messages = append(v.Messages, "Choose an option below to continue summoning.")
	}
	return v
}
