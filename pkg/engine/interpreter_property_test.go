package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/novella/pkg/script"
)

func newPropertyInterpreter(lines []string) (*Interpreter, *fakeHost, *[]*ScriptError) {
	prog, _ := script.Parse(strings.NewReader(strings.Join(lines, "\n")))
	host := newFakeHost()
	var errs []*ScriptError
	in := NewInterpreter(prog, host, WithErrorHandler(func(e *ScriptError) {
		errs = append(errs, e)
	}))
	in.EnterScreen(ScreenGame)
	return in, host, &errs
}

// 入力1回で進むのはちょうど1コマンド
func TestProperty_InputAdvancesOneCommand(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("say の後は入力ごとに1行だけ進む", prop.ForAll(
		func(before, after int, text string) bool {
			var lines []string
			for i := 0; i < before; i++ {
				lines = append(lines, fmt.Sprintf("set a%d %d", i, i))
			}
			lines = append(lines, "say "+text)
			for i := 0; i < after; i++ {
				lines = append(lines, fmt.Sprintf("set b%d %d", i, i))
			}

			in, _, _ := newPropertyInterpreter(lines)
			for in.Status() == StatusRunning {
				in.RequestAdvance()
				in.Tick()
			}
			if in.PC() != before+1 {
				return false
			}
			if after == 0 {
				return in.Status() == StatusEnded
			}
			if in.Status() != StatusIdle {
				return false
			}

			// 入力なしでは進まない
			in.RequestAdvance()
			if in.Tick() {
				return false
			}

			in.Input()
			in.Tick()
			in.Tick()
			return in.PC() == before+2
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// if の比較結果とコマンド実行が一致する
func TestProperty_IfMatchesComparison(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300

	properties := gopter.NewProperties(parameters)

	ops := map[string]func(a, b int) bool{
		">":  func(a, b int) bool { return a > b },
		"<":  func(a, b int) bool { return a < b },
		"=":  func(a, b int) bool { return a == b },
		"==": func(a, b int) bool { return a == b },
		">=": func(a, b int) bool { return a >= b },
		"<=": func(a, b int) bool { return a <= b },
		"!=": func(a, b int) bool { return a != b },
	}

	properties.Property("条件が真のときだけ表示リストに追加される", prop.ForAll(
		func(a, b int, op string) bool {
			in, _, errs := newPropertyInterpreter([]string{
				fmt.Sprintf("set x %d", a),
				fmt.Sprintf("if x %s %d show image hit 0 0 1 1", op, b),
			})
			for in.Status() == StatusRunning {
				in.RequestAdvance()
				in.Tick()
			}
			shown := len(in.DisplayList(ScreenGame)) == 1
			return len(*errs) == 0 && shown == ops[op](a, b)
		},
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
		gen.OneConstOf(">", "<", "=", "==", ">=", "<=", "!="),
	))

	properties.TestingRun(t)
}

// 未知のラベルへの goto は移動せず、行は通常どおり消費される
func TestProperty_GotoUnknownLabelDoesNotJump(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("PC は次の行へ進むだけ", prop.ForAll(
		func(known []string, target string, pad int) bool {
			var lines []string
			for _, name := range known {
				lines = append(lines, "label k"+name)
			}
			for i := 0; i < pad; i++ {
				lines = append(lines, "set p 1")
			}
			at := len(lines)
			lines = append(lines, "goto u"+target, "set after 1")

			in, _, errs := newPropertyInterpreter(lines)
			for in.PC() < at {
				in.Input()
				in.Tick()
			}
			in.Input()
			in.Tick()
			if in.PC() != at+1 {
				return false
			}
			return len(*errs) == 1 && (*errs)[0].Kind == ErrorUnknownLabel && (*errs)[0].Line == at+1
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
		gen.IntRange(0, 5),
	))

	properties.Property("既知のラベルへは必ず移動する", prop.ForAll(
		func(pad int) bool {
			lines := []string{"goto end"}
			for i := 0; i < pad; i++ {
				lines = append(lines, fmt.Sprintf("set skipped%d 1", i))
			}
			lines = append(lines, "label end", "set reached 1")

			in, _, _ := newPropertyInterpreter(lines)
			in.Input()
			in.Tick()
			if in.PC() != pad+1 {
				return false
			}
			for in.Status() == StatusRunning {
				in.RequestAdvance()
				in.Tick()
			}
			_, reached := in.Variable("reached")
			return reached && len(in.State().Variables) == 1
		},
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}
