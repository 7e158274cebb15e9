package worker

import (
	"testing"

	"go.uber.org/goleak"
)

// 全テスト終了後にワーカーのゴルーチンが残っていないことを確認する
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
