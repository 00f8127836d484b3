package script

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// ラベル索引: 任意のスクリプトについて Labels[name] は "label name" が最後に現れた行番号に等しい
func TestProperty_LabelIndexIsLastOccurrence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// 行の種類: 0-2 はラベル、それ以外は通常のコマンド
	names := []string{"a", "b", "c"}
	render := func(kind int) string {
		switch kind {
		case 0, 1, 2:
			return "label " + names[kind]
		case 3:
			return "say label " + names[0]
		case 4:
			return "goto " + names[1]
		default:
			return "  label\t" + names[2] + " trailing"
		}
	}

	properties.Property("最後に現れたラベル行が採用される", prop.ForAll(
		func(kinds []int) bool {
			lines := make([]string, len(kinds))
			want := map[string]int{}
			for i, k := range kinds {
				lines[i] = render(k)
				switch k {
				case 0, 1, 2:
					want[names[k]] = i
				case 5:
					want[names[2]] = i
				}
			}

			p, err := Parse(strings.NewReader(strings.Join(lines, "\n")))
			if err != nil {
				return false
			}
			if p.Len() != len(lines) || len(p.Labels) != len(want) {
				return false
			}
			for name, idx := range want {
				if got, ok := p.Label(name); !ok || got != idx {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5)),
	))

	properties.TestingRun(t)
}
