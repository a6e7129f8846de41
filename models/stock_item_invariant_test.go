package models

import "testing"

func intPtr(v int) *int { return &v }

func TestStockItemBeforeSave_OrderReferenceLinkage(t *testing.T) {
	cases := []struct {
		name     string
		status   StockItemStatus
		orderId  *int
		detailId *int
		wantErr  bool
	}{
		{"available without refs", StockItemStatusAvailable, nil, nil, false},
		{"available with order", StockItemStatusAvailable, intPtr(7), nil, true},
		{"available with detail", StockItemStatusAvailable, nil, intPtr(3), true},
		{"reserved with both refs", StockItemStatusReserved, intPtr(7), intPtr(3), false},
		{"reserved without order", StockItemStatusReserved, nil, intPtr(3), true},
		{"reserved without detail", StockItemStatusReserved, intPtr(7), nil, true},
		{"sold with both refs", StockItemStatusSold, intPtr(7), intPtr(3), false},
		{"sold without order", StockItemStatusSold, nil, intPtr(3), true},
		{"sold without detail", StockItemStatusSold, intPtr(7), nil, true},
		{"returned without refs", StockItemStatusReturned, nil, nil, false},
		{"returned with order", StockItemStatusReturned, intPtr(7), nil, true},
		{"returned with detail", StockItemStatusReturned, nil, intPtr(3), true},
		{"damaged without refs", StockItemStatusDamaged, nil, nil, false},
		{"damaged with order", StockItemStatusDamaged, intPtr(7), nil, true},
	}

	for _, c := range cases {
		item := StockItem{Tag: "T-000001", Status: c.status, OrderId: c.orderId, OrderDetailId: c.detailId}
		err := item.BeforeSave(nil)
		if c.wantErr && err == nil {
			t.Fatalf("%s: expected the hook to reject", c.name)
		}
		if !c.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
	}
}

func TestStockMovement_Immutable(t *testing.T) {
	m := StockMovement{}
	if err := m.BeforeUpdate(nil); err != ErrStockMovementImmutable {
		t.Fatalf("BeforeUpdate = %v, want ErrStockMovementImmutable", err)
	}
	if err := m.BeforeDelete(nil); err != ErrStockMovementImmutable {
		t.Fatalf("BeforeDelete = %v, want ErrStockMovementImmutable", err)
	}
}
