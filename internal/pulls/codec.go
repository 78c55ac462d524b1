package pulls

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrMalformedPulls = errors.New("malformed pulls data")

type pullsJSON struct {
	SingleQuota      int        `json:"singleQuota"`
	BulkQuota        int        `json:"bulkQuota"`
	CompletedSingles []Banner   `json:"completedSingles"`
	CompletedBulks   []Banner   `json:"completedBulks"`
	Active           activeJSON `json:"active"`
}

type activeJSON struct {
	Kind   Kind    `json:"kind"`
	Banner *Banner `json:"banner,omitempty"`
}

func (p PullsData) MarshalJSON() ([]byte, error) {
	out := pullsJSON{
		SingleQuota:      p.SingleQuota,
		BulkQuota:        p.BulkQuota,
		CompletedSingles: p.CompletedSingles,
		CompletedBulks:   p.CompletedBulks,
		Active:           activeJSON{Kind: KindOf(p.Active)},
	}
	if out.CompletedSingles == nil {
		out.CompletedSingles = []Banner{}
	}
	if out.CompletedBulks == nil {
		out.CompletedBulks = []Banner{}
	}
	if b, ok := activeBanner(p.Active); ok {
		out.Active.Banner = &b
	}
	return json.Marshal(out)
}

func (p *PullsData) UnmarshalJSON(data []byte) error {
	var in pullsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.SingleQuota < 0 || in.BulkQuota < 0 {
		return fmt.Errorf("%w: negative quota", ErrMalformedPulls)
	}

	var active Active
	switch in.Active.Kind {
	case KindNone, "":
		if in.Active.Banner != nil {
			return fmt.Errorf("%w: idle state carries a banner", ErrMalformedPulls)
		}
		active = Idle{}
	case KindSingle:
		if in.Active.Banner == nil {
			return fmt.Errorf("%w: single state without banner", ErrMalformedPulls)
		}
		active = Single{Banner: *in.Active.Banner}
	case KindBulk:
		if in.Active.Banner == nil {
			return fmt.Errorf("%w: bulk state without banner", ErrMalformedPulls)
		}
		active = Bulk{Banner: *in.Active.Banner}
	default:
		return fmt.Errorf("%w: unknown active kind %q", ErrMalformedPulls, in.Active.Kind)
	}

	if in.CompletedSingles == nil {
		in.CompletedSingles = []Banner{}
	}
	if in.CompletedBulks == nil {
		in.CompletedBulks = []Banner{}
	}
	decoded := PullsData{
		SingleQuota:      in.SingleQuota,
		BulkQuota:        in.BulkQuota,
		CompletedSingles: in.CompletedSingles,
		CompletedBulks:   in.CompletedBulks,
		Active:           active,
	}
	if err := decoded.check(); err != nil {
		return err
	}
	*p = decoded
	return nil
}

// check rejects decoded state no sequence of operations could have produced.
func (p *PullsData) check() error {
	if p.ConsumedSingles() > p.SingleQuota {
		return fmt.Errorf("%w: %d singles consumed of %d", ErrMalformedPulls, p.ConsumedSingles(), p.SingleQuota)
	}
	if p.ConsumedBulks() > p.BulkQuota {
		return fmt.Errorf("%w: %d bulks consumed of %d", ErrMalformedPulls, p.ConsumedBulks(), p.BulkQuota)
	}
	for b := range p.Banners() {
		for i, slot := range b.Slots {
			if !slot.Pool.Valid() {
				return fmt.Errorf("%w: slot %d has unknown pool %q", ErrMalformedPulls, i, slot.Pool)
			}
			if !(slot.Rarity > 0) || math.IsInf(slot.Rarity, 0) {
				return fmt.Errorf("%w: slot %d has rarity %v", ErrMalformedPulls, i, slot.Rarity)
			}
		}
	}
	return nil
}
