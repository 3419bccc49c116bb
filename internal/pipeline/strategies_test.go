package pipeline

import (
	"reflect"
	"testing"

	"github.com/flemzord/phrasecue/pkg/clip"
)

func TestStrategies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		canonical string
		kind      clip.QueryKind
		want      []string
	}{
		{
			name:      "word",
			canonical: "serendipity",
			kind:      clip.KindWord,
			want: []string{
				`"serendipity" explained`,
				`serendipity explained`,
				`serendipity`,
				`"serendipity"`,
			},
		},
		{
			name:      "sentence",
			canonical: "break a leg",
			kind:      clip.KindSentence,
			want: []string{
				`"break a leg"`,
				`break a leg`,
				`break a leg example`,
				`"break a leg" explained`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Strategies(tt.canonical, tt.kind)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Strategies() = %v, want %v", got, tt.want)
			}
		})
	}
}
