package main

import "testing"

func TestSpatialGridInsertAndQuery(t *testing.T) {
	grid := newSpatialGrid(1600, 1000, 84)
	grid.InsertCircle(Point2D{100, 100}, 20, 0)

	found := grid.QueryBuf(Point2D{100, 100}, 2, nil)
	if len(found) != 1 || found[0] != 0 {
		t.Errorf("expected to find entity 0, got %v", found)
	}

	if far := grid.QueryBuf(Point2D{1500, 900}, 2, nil); len(far) != 0 {
		t.Errorf("should not find entity far away, got %v", far)
	}
}

func TestSpatialGridDedupesAndSorts(t *testing.T) {
	grid := newSpatialGrid(1600, 1000, 84)
	// straddles four cells
	grid.InsertCircle(Point2D{84, 84}, 20, 5)
	grid.InsertCircle(Point2D{80, 80}, 20, 2)

	found := grid.QueryBuf(Point2D{84, 84}, 30, []int{99})
	want := []int{99, 2, 5}
	if len(found) != len(want) {
		t.Fatalf("expected %v, got %v", want, found)
	}
	for i := range want {
		if found[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, found)
		}
	}
}

func TestSpatialGridClampsOffMap(t *testing.T) {
	grid := newSpatialGrid(1600, 1000, 84)
	grid.InsertCircle(Point2D{-500, 2000}, 20, 3)

	found := grid.QueryBuf(Point2D{-480, 2010}, 2, nil)
	if len(found) != 1 || found[0] != 3 {
		t.Errorf("off-map entities should land in edge cells, got %v", found)
	}
}

func TestSpatialGridClear(t *testing.T) {
	grid := newSpatialGrid(1600, 1000, 84)
	grid.InsertCircle(Point2D{500, 500}, 20, 0)
	grid.Clear()

	if found := grid.QueryBuf(Point2D{500, 500}, 20, nil); len(found) != 0 {
		t.Errorf("expected empty grid after clear, got %v", found)
	}
}
