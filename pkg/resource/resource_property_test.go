package resource

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// リクエストの冪等性: 未キャッシュの名前をN回要求しても、キュー投入とデコード・アップロードは1回だけ
func TestProperty_RequestIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	root := t.TempDir()
	writePNG(t, filepath.Join(root, "bg.png"))

	properties.Property("N回の要求で1回だけ読み込まれる", prop.ForAll(
		func(n int) bool {
			var mu sync.Mutex
			up := &fakeUploader{}
			l := NewLoader(root, NewCache(), &mu, up, WithInterval(time.Millisecond))

			enqueued := 0
			mu.Lock()
			for i := 0; i < n; i++ {
				if l.Request("bg") {
					enqueued++
				}
			}
			mu.Unlock()
			if enqueued != 1 || l.Pending() != 1 {
				return false
			}

			l.Start(context.Background())
			deadline := time.Now().Add(5 * time.Second)
			for l.Pending() > 0 && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}

			// 読み込み完了後の要求はキャッシュ済みなので何もしない
			mu.Lock()
			again := l.Request("bg")
			mu.Unlock()
			l.Stop()

			return !again && l.Stats().Images == 1 && up.count() == 1
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
