package book

import "testing"

func TestAVLInsertGetRemove(t *testing.T) {
	tree := newAVLTree()
	p1 := newPriceLevel(100)
	if !tree.insert(100, p1) {
		t.Fatal("expected first insert at 100 to report inserted=true")
	}

	got, ok := tree.get(100)
	if !ok || got != p1 {
		t.Error("get(100) did not return the inserted level")
	}

	tree.insert(200, newPriceLevel(200))

	if k, _, ok := tree.min(); !ok || k != 100 {
		t.Errorf("expected min=100, got %v ok=%v", k, ok)
	}
	if k, _, ok := tree.max(); !ok || k != 200 {
		t.Errorf("expected max=200, got %v ok=%v", k, ok)
	}

	if !tree.remove(100) {
		t.Error("remove(100) should report true")
	}
	if _, ok := tree.get(100); ok {
		t.Error("expected 100 to be gone after remove")
	}
}

func TestAVLRemoveNonExistent(t *testing.T) {
	tree := newAVLTree()
	tree.insert(10, newPriceLevel(10))
	if tree.remove(999) {
		t.Error("expected false when removing a key never inserted")
	}
}

func TestAVLEmptyTreeMinMax(t *testing.T) {
	tree := newAVLTree()
	if _, _, ok := tree.min(); ok {
		t.Error("expected ok=false for min on empty tree")
	}
	if _, _, ok := tree.max(); ok {
		t.Error("expected ok=false for max on empty tree")
	}
}

func TestAVLInsertDuplicateKeyUpdatesValue(t *testing.T) {
	tree := newAVLTree()
	p1 := newPriceLevel(50)
	p2 := newPriceLevel(50)

	if !tree.insert(50, p1) {
		t.Fatal("first insert should report true")
	}
	if tree.insert(50, p2) {
		t.Error("re-insert of an existing key should report false")
	}

	got, _ := tree.get(50)
	if got != p2 {
		t.Error("re-insert should have replaced the stored value")
	}
	if tree.Size() != 1 {
		t.Errorf("expected size 1 after duplicate insert, got %d", tree.Size())
	}
}

// TestAVLInsertManyStaysBalanced inserts an ascending run of keys,
// the pattern that degenerates an unbalanced BST into a linked list,
// and checks every node's balance factor stays within [-1, 1].
func TestAVLInsertManyStaysBalanced(t *testing.T) {
	tree := newAVLTree()
	for i := 0; i < 1000; i++ {
		tree.insert(float64(i), newPriceLevel(float64(i)))
	}

	var walk func(n *avlNode)
	walk = func(n *avlNode) {
		if n == nil {
			return
		}
		if b := avlBalance(n); b < -1 || b > 1 {
			t.Fatalf("node %v has balance factor %d", n.key, b)
		}
		walk(n.left)
		walk(n.right)
	}
	walk(tree.root)
}

func TestAVLCursorForwardBackward(t *testing.T) {
	tree := newAVLTree()
	prices := []float64{50, 10, 40, 20, 30}
	for _, p := range prices {
		tree.insert(p, newPriceLevel(p))
	}

	var forward []float64
	cur := tree.front()
	for {
		k, _, ok := cur.get()
		if !ok {
			break
		}
		forward = append(forward, k)
		if !cur.next() {
			break
		}
	}
	want := []float64{10, 20, 30, 40, 50}
	if len(forward) != len(want) {
		t.Fatalf("forward walk length = %d, want %d", len(forward), len(want))
	}
	for i := range want {
		if forward[i] != want[i] {
			t.Errorf("forward[%d] = %v, want %v", i, forward[i], want[i])
		}
	}

	var backward []float64
	cur = tree.back()
	for {
		k, _, ok := cur.get()
		if !ok {
			break
		}
		backward = append(backward, k)
		if !cur.prev() {
			break
		}
	}
	for i := range want {
		if backward[i] != want[len(want)-1-i] {
			t.Errorf("backward[%d] = %v, want %v", i, backward[i], want[len(want)-1-i])
		}
	}
}

// TestAVLCursorSurvivesRebalance inserts a cursor at a known key, then
// triggers rotations via further inserts, and checks the cursor can
// still advance correctly since it re-descends from root each step.
func TestAVLCursorSurvivesRebalance(t *testing.T) {
	tree := newAVLTree()
	tree.insert(10, newPriceLevel(10))
	tree.insert(20, newPriceLevel(20))

	cur := tree.front() // sits on key 10

	for _, p := range []float64{30, 40, 50, 60, 70} {
		tree.insert(p, newPriceLevel(p))
	}

	k, _, ok := cur.get()
	if !ok || k != 10 {
		t.Fatalf("cursor lost its key across rebalances: k=%v ok=%v", k, ok)
	}
	if !cur.next() {
		t.Fatal("expected cursor to advance past 10")
	}
	if k, _, _ := cur.get(); k != 20 {
		t.Errorf("expected successor of 10 to be 20, got %v", k)
	}
}
