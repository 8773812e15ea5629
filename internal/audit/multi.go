package audit

import (
	"context"
	"errors"

	"sentinel-auth/backend/internal/audit/domain"
)

type multiEmitter struct {
	emitters []Emitter
}

// CombineEmitters fans one event out to every non-nil emitter. Returns nil
// when none are given so callers can pass the result straight to NewRecorder.
func CombineEmitters(emitters ...Emitter) Emitter {
	var active []Emitter
	for _, e := range emitters {
		if e != nil {
			active = append(active, e)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return &multiEmitter{emitters: active}
}

func (m *multiEmitter) Emit(ctx context.Context, e *domain.Event) error {
	var errs []error
	for _, emitter := range m.emitters {
		if err := emitter.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
