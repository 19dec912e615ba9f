package wheel

import "testing"

func collect(q *queue) []*Task {
	var out []*Task
	for t := q.peek(); t != nil; t = t.next {
		out = append(out, t)
	}
	return out
}

func TestQueueLinkOrder(t *testing.T) {
	t.Parallel()
	q := &queue{}
	a := NewTaskFunc(func() {})
	b := NewTaskFunc(func() {})
	c := NewTaskFunc(func() {})
	q.linkLast(a)
	q.linkLast(b)
	q.linkLast(c)

	got := collect(q)
	if len(got) != 3 || got[0] != a || got[1] != b || got[2] != c {
		t.Fatalf("unexpected order, got %d tasks", len(got))
	}
	if q.size != 3 {
		t.Fatalf("size = %d, want 3", q.size)
	}
	if a.q != q || b.q != q || c.q != q {
		t.Fatal("owner reference not set on linked tasks")
	}
}

func TestQueueUnlink(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		remove int
		want   []int
	}{
		{name: "head", remove: 0, want: []int{1, 2}},
		{name: "middle", remove: 1, want: []int{0, 2}},
		{name: "tail", remove: 2, want: []int{0, 1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := &queue{}
			tasks := make([]*Task, 3)
			for i := range tasks {
				tasks[i] = NewTaskFunc(func() {})
				q.linkLast(tasks[i])
			}

			victim := tasks[tt.remove]
			q.unlink(victim)
			if victim.q != nil || victim.prev != nil || victim.next != nil {
				t.Fatal("unlinked task retains links")
			}
			if q.size != 2 {
				t.Fatalf("size = %d, want 2", q.size)
			}

			got := collect(q)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, idx := range tt.want {
				if got[i] != tasks[idx] {
					t.Fatalf("position %d holds the wrong task", i)
				}
			}

			// Tail must still be valid for appends.
			d := NewTaskFunc(func() {})
			q.linkLast(d)
			got = collect(q)
			if got[len(got)-1] != d {
				t.Fatal("append after unlink did not land at the tail")
			}
		})
	}
}

func TestQueueUnlinkFirst(t *testing.T) {
	t.Parallel()
	q := &queue{}
	if q.unlinkFirst() != nil {
		t.Fatal("empty queue should pop nil")
	}

	a := NewTaskFunc(func() {})
	b := NewTaskFunc(func() {})
	q.linkLast(a)
	q.linkLast(b)

	if got := q.unlinkFirst(); got != a {
		t.Fatal("first pop should return the head")
	}
	if a.q != nil || a.next != nil {
		t.Fatal("popped task retains links")
	}
	if q.head != b || b.prev != nil {
		t.Fatal("head not advanced cleanly")
	}
	if got := q.unlinkFirst(); got != b {
		t.Fatal("second pop should return the remaining task")
	}
	if q.head != nil || q.tail != nil || q.size != 0 {
		t.Fatalf("queue not empty after draining: size=%d", q.size)
	}
}
