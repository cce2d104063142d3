package runes

import "fmt"

// Wrap runs fn inside a tag, guaranteeing finalization on every exit path.
//
// On error the tag records success=false with the error message, then the
// original error is returned unchanged - instrumentation never masks a real
// failure. On panic the tag is finalized with the panic message and the
// panic is re-raised. Abandonment by process death is the one accepted,
// unrecovered case.
func Wrap(reg *Registry, runeType string, fn func(t *Tag) error, opts ...Option) error {
	t := Start(runeType, opts...)

	defer func() {
		if r := recover(); r != nil {
			t.Finish(reg, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	err := fn(t)
	t.Finish(reg, err)
	return err
}
