package book

import "testing"

func TestPriceLevelFIFOOrder(t *testing.T) {
	lvl := newPriceLevel(100)
	lvl.addOrder(Order{OrderID: "o1", Quantity: 10, Price: 100})
	lvl.addOrder(Order{OrderID: "o2", Quantity: 5, Price: 100})

	if lvl.totalQuantity != 15 {
		t.Fatalf("total_quantity = %d, want 15", lvl.totalQuantity)
	}

	head, ok := lvl.peekHead()
	if !ok || head.OrderID != "o1" {
		t.Fatalf("expected head o1, got %+v ok=%v", head, ok)
	}

	popped, ok := lvl.popHead()
	if !ok || popped.OrderID != "o1" {
		t.Fatalf("popHead should return o1 first, got %+v", popped)
	}
	if lvl.totalQuantity != 5 {
		t.Errorf("total_quantity after pop = %d, want 5", lvl.totalQuantity)
	}

	popped, ok = lvl.popHead()
	if !ok || popped.OrderID != "o2" {
		t.Fatalf("popHead should return o2 second, got %+v", popped)
	}
	if !lvl.isEmpty() {
		t.Error("expected level empty after popping both orders")
	}
}

func TestPriceLevelPopEmpty(t *testing.T) {
	lvl := newPriceLevel(100)
	if _, ok := lvl.popHead(); ok {
		t.Error("popHead on empty level should report ok=false")
	}
}

func TestPriceLevelDeleteByIDMiddle(t *testing.T) {
	lvl := newPriceLevel(100)
	lvl.addOrder(Order{OrderID: "o1", Quantity: 1, Price: 100})
	lvl.addOrder(Order{OrderID: "o2", Quantity: 2, Price: 100})
	lvl.addOrder(Order{OrderID: "o3", Quantity: 3, Price: 100})

	if !lvl.deleteByID("o2") {
		t.Fatal("deleteByID(o2) should report true")
	}
	if lvl.totalQuantity != 4 {
		t.Errorf("total_quantity after delete = %d, want 4", lvl.totalQuantity)
	}
	if _, ok := lvl.findByID("o2"); ok {
		t.Error("o2 should no longer be findable")
	}

	head, _ := lvl.peekHead()
	if head.OrderID != "o1" {
		t.Errorf("head should remain o1, got %s", head.OrderID)
	}

	lvl.popHead()
	tail, ok := lvl.peekHead()
	if !ok || tail.OrderID != "o3" {
		t.Errorf("after removing o1 and o2, head should be o3, got %+v", tail)
	}
}

func TestPriceLevelDeleteByIDTail(t *testing.T) {
	lvl := newPriceLevel(100)
	lvl.addOrder(Order{OrderID: "o1", Quantity: 1, Price: 100})
	lvl.addOrder(Order{OrderID: "o2", Quantity: 2, Price: 100})

	if !lvl.deleteByID("o2") {
		t.Fatal("deleteByID(o2) should report true")
	}
	lvl.addOrder(Order{OrderID: "o3", Quantity: 3, Price: 100})

	popped, _ := lvl.popHead()
	if popped.OrderID != "o1" {
		t.Fatalf("expected o1 first, got %s", popped.OrderID)
	}
	popped, _ = lvl.popHead()
	if popped.OrderID != "o3" {
		t.Fatalf("expected o3 second (tail correctly relinked), got %s", popped.OrderID)
	}
}

func TestPriceLevelDeleteByIDUnknown(t *testing.T) {
	lvl := newPriceLevel(100)
	lvl.addOrder(Order{OrderID: "o1", Quantity: 1, Price: 100})
	if lvl.deleteByID("nope") {
		t.Error("deleteByID should report false for an unknown id")
	}
}

func TestPriceLevelSetHeadQuantity(t *testing.T) {
	lvl := newPriceLevel(100)
	lvl.addOrder(Order{OrderID: "o1", Quantity: 10, Price: 100})

	lvl.setHeadQuantity(4)
	if lvl.totalQuantity != 4 {
		t.Errorf("total_quantity after partial fill = %d, want 4", lvl.totalQuantity)
	}
	head, _ := lvl.peekHead()
	if head.Quantity != 4 {
		t.Errorf("head quantity = %d, want 4", head.Quantity)
	}
}
