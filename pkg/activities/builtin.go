package activities

import "github.com/aretw0/huddle/pkg/domain"

// Builtins returns the activities compiled into the runtime.
func Builtins() []domain.Activity {
	return []domain.Activity{
		NewSnowball(),
		NewBrainstorm(),
	}
}
