package kmain

import (
	"github.com/keyem4251/toyos/kernel/kfmt"
	"github.com/keyem4251/toyos/kernel/task"
)

func asyncNumber() int {
	return 42
}

// exampleTask completes on its first poll.
func exampleTask(_ *task.Context) task.Poll {
	kfmt.Printf("async number: %d\n", asyncNumber())
	return task.Ready
}
