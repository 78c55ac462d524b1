package pulls

// Kind names the type of summon a banner belongs to.
type Kind string

const (
	KindNone   Kind = "none"
	KindSingle Kind = "single"
	KindBulk   Kind = "bulk"
)

// Active is the banner an order is currently working on: Idle, Single or
// Bulk. The interface is sealed; a nil Active is treated as Idle.
type Active interface {
	kind() Kind
}

type Idle struct{}

// Single is a banner started with a single summon. Each reveal consumes one
// single summon.
type Single struct {
	Banner Banner
}

// Bulk is a banner started with a full summon. It consumes one bulk summon
// regardless of how many slots are revealed.
type Bulk struct {
	Banner Banner
}

func (Idle) kind() Kind   { return KindNone }
func (Single) kind() Kind { return KindSingle }
func (Bulk) kind() Kind   { return KindBulk }

// KindOf reports the kind of an active banner.
func KindOf(a Active) Kind {
	if a == nil {
		return KindNone
	}
	return a.kind()
}

// activeBanner unwraps the banner held by a, if any.
func activeBanner(a Active) (Banner, bool) {
	switch a := a.(type) {
	case Single:
		return a.Banner, true
	case Bulk:
		return a.Banner, true
	case Idle, nil:
		return Banner{}, false
	default:
		panic("pulls: unknown active banner type")
	}
}

// withBanner returns a with its banner replaced by b.
func withBanner(a Active, b Banner) Active {
	switch a.(type) {
	case Single:
		return Single{Banner: b}
	case Bulk:
		return Bulk{Banner: b}
	default:
		return a
	}
}
