package app

import "github.com/jinxlo/RifasCAIv2/services/api/internal/domain"

// Publisher broadcasts state transitions to subscribers. Delivery is
// at-most-once best effort; services never block on it.
type Publisher interface {
	Publish(evt domain.Event)
}

func publish(p Publisher, evt domain.Event) {
	if p != nil {
		p.Publish(evt)
	}
}
