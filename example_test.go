package huddle_test

import (
	"context"
	"fmt"

	"github.com/aretw0/huddle"
	"github.com/aretw0/huddle/pkg/activities"
	"github.com/aretw0/huddle/pkg/domain"
)

func Example() {
	ctx := context.Background()
	rt, err := huddle.New(ctx)
	if err != nil {
		panic(err)
	}

	room := rt.Open("room-1", domain.Identity{ParticipantID: "alice", IsAuthority: true}, nil)
	defer room.Close()

	_ = room.Start(ctx, activities.SnowballSlug)
	_ = room.Emit(ctx, "submit", map[string]any{"id": "q1", "text": "Favourite film?"})
	_ = room.Emit(ctx, "pick", map[string]any{"userId": "bob", "questionId": "q1"})

	state := room.State()
	fmt.Println(state.ActiveSlug, state.Phase)
	fmt.Println(state.Shared[activities.KeyChosen])
	// Output:
	// snowball write
	// map[bob:q1]
}
