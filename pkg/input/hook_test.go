package input

import (
	"testing"

	hook "github.com/robotn/gohook"
	"github.com/stretchr/testify/assert"
)

func TestTranslateHookEvent(t *testing.T) {
	cases := []struct {
		name string
		raw  hook.Event
		want Event
		ok   bool
	}{
		{
			name: "key down",
			raw:  hook.Event{Kind: hook.KeyDown},
			want: Event{Kind: KindKeyDown},
			ok:   true,
		},
		{
			name: "key up",
			raw:  hook.Event{Kind: hook.KeyUp},
			want: Event{Kind: KindKeyUp},
			ok:   true,
		},
		{
			name: "mouse down",
			raw:  hook.Event{Kind: hook.MouseDown},
			want: Event{Kind: KindButtonDown},
			ok:   true,
		},
		{
			name: "mouse move",
			raw:  hook.Event{Kind: hook.MouseMove, X: 120, Y: 45},
			want: Event{Kind: KindPointerMoved, X: 120, Y: 45},
			ok:   true,
		},
		{
			name: "mouse drag counts as movement",
			raw:  hook.Event{Kind: hook.MouseDrag, X: 5, Y: 6},
			want: Event{Kind: KindPointerMoved, X: 5, Y: 6},
			ok:   true,
		},
		{
			name: "vertical wheel",
			raw:  hook.Event{Kind: hook.MouseWheel, Rotation: -2, Direction: 3},
			want: Event{Kind: KindWheelScrolled, ScrollY: -2},
			ok:   true,
		},
		{
			name: "horizontal wheel",
			raw:  hook.Event{Kind: hook.MouseWheel, Rotation: 1, Direction: wheelHorizontal},
			want: Event{Kind: KindWheelScrolled, ScrollX: 1},
			ok:   true,
		},
		{
			name: "hook lifecycle event is dropped",
			raw:  hook.Event{Kind: hook.HookEnabled},
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := translateHookEvent(tc.raw)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
