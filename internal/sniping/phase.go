// internal/sniping/phase.go
package sniping

// Phase is the lifecycle state of one sniper instance. Transitions are
// linear except Failed, which any active phase can enter.
type Phase int32

const (
	PhaseReadyToBuy Phase = iota
	PhaseBuying
	PhaseAnalyzingPrice
	PhaseWatching
	PhaseSelling
	PhaseClosed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseReadyToBuy:
		return "ready_to_buy"
	case PhaseBuying:
		return "buying"
	case PhaseAnalyzingPrice:
		return "analyzing_price"
	case PhaseWatching:
		return "watching"
	case PhaseSelling:
		return "selling"
	case PhaseClosed:
		return "closed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}
