package model

import "testing"

func TestDeriveShoppingStatus(t *testing.T) {
	milk := &ShoppingItem{ID: 1, Name: "牛奶", Quantity: 2}
	eggs := &ShoppingItem{ID: 2, Name: "鸡蛋", Quantity: 12}

	if got := DeriveShoppingStatus(nil); got != TaskStatusNotStarted {
		t.Errorf("Empty list should be not started, got %d", got)
	}

	if got := DeriveShoppingStatus([]*ShoppingItem{milk, eggs}); got != TaskStatusNotStarted {
		t.Errorf("No item completed should be not started, got %d", got)
	}

	milk.Completed = true
	if got := DeriveShoppingStatus([]*ShoppingItem{milk, eggs}); got != TaskStatusInProgress {
		t.Errorf("Partially completed should be in progress, got %d", got)
	}

	eggs.Completed = true
	if got := DeriveShoppingStatus([]*ShoppingItem{milk, eggs}); got != TaskStatusCompleted {
		t.Errorf("All completed should be completed, got %d", got)
	}
}

func TestApplyShoppingStatus(t *testing.T) {
	task := &Task{
		Kind: TaskKindShopping,
		Items: []*ShoppingItem{
			{ID: 1, Name: "牛奶", Completed: true},
			{ID: 2, Name: "鸡蛋", Completed: true},
		},
	}

	task.ApplyShoppingStatus()
	if task.Status != TaskStatusCompleted || !task.Completed || !task.Started {
		t.Errorf("Expected completed task, got status=%d completed=%v started=%v",
			task.Status, task.Completed, task.Started)
	}

	// 取消一项，回到进行中
	task.Items[1].Completed = false
	task.ApplyShoppingStatus()
	if task.Status != TaskStatusInProgress || task.Completed {
		t.Errorf("Expected in-progress task, got status=%d completed=%v", task.Status, task.Completed)
	}

	// 全部取消后回到未开始，但 started 保持
	task.Items[0].Completed = false
	task.ApplyShoppingStatus()
	if task.Status != TaskStatusNotStarted {
		t.Errorf("Expected not started, got %d", task.Status)
	}
	if !task.Started {
		t.Error("Started flag should survive reverting all items")
	}
}

func TestIsChannelTask(t *testing.T) {
	personal := &Task{ChannelID: 0}
	if personal.IsChannelTask() {
		t.Error("Task without channel should be personal")
	}

	channel := &Task{ChannelID: 42}
	if !channel.IsChannelTask() {
		t.Error("Task with channel should be a channel task")
	}
}
