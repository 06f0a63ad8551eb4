package collage

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		width, height int
		want          Orientation
	}{
		{1000, 2000, Portrait},
		{2000, 1000, Landscape},
		{1000, 1050, Square},
		{1050, 1000, Square},
		{0, 100, Unknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.width, tc.height); got != tc.want {
			t.Errorf("Classify(%d, %d) = %q, want %q", tc.width, tc.height, got, tc.want)
		}
	}
}

func TestPlanGridRejectsSingleImage(t *testing.T) {
	if _, err := PlanGrid(1, 1920, 1080, nil); !errors.Is(err, ErrTooFewMembers) {
		t.Fatalf("expected ErrTooFewMembers, got %v", err)
	}
}

func TestPlanGridTwoLandscapesStackVertically(t *testing.T) {
	plan, err := PlanGrid(2, 1920, 1080, []Orientation{Landscape, Landscape})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Cols != 1 || plan.Rows != 2 {
		t.Fatalf("grid = %dx%d, want 1x2", plan.Cols, plan.Rows)
	}
}

func TestPlanGridTwoPortraitsSitSideBySide(t *testing.T) {
	plan, err := PlanGrid(2, 1920, 1080, []Orientation{Portrait, Portrait})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Cols != 2 || plan.Rows != 1 {
		t.Fatalf("grid = %dx%d, want 2x1", plan.Cols, plan.Rows)
	}
}

func TestPlanGridThreeCentersBottomCell(t *testing.T) {
	plan, err := PlanGrid(3, 1920, 1080, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Cols != 2 || plan.Rows != 2 {
		t.Fatalf("grid = %dx%d, want 2x2", plan.Cols, plan.Rows)
	}
	if len(plan.Positions) != 3 {
		t.Fatalf("positions = %d, want 3", len(plan.Positions))
	}
	top := plan.Positions[0]
	bottom := plan.Positions[2]
	if bottom.X <= top.X {
		t.Fatalf("third cell should be centered, got x=%d (first cell x=%d)", bottom.X, top.X)
	}
	if bottom.Y <= top.Y {
		t.Fatalf("third cell should sit on the second row, got y=%d", bottom.Y)
	}
}

func TestPlanGridLargeSetsWrapAtThreeColumns(t *testing.T) {
	plan, err := PlanGrid(7, 1920, 1080, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Cols != 3 || plan.Rows != 3 {
		t.Fatalf("grid = %dx%d, want 3x3", plan.Cols, plan.Rows)
	}
	if len(plan.Positions) != 7 {
		t.Fatalf("positions = %d, want 7", len(plan.Positions))
	}
}

func TestPlanGridPaddingFloor(t *testing.T) {
	plan, err := PlanGrid(2, 400, 300, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Padding != 20 {
		t.Fatalf("padding = %d, want floor of 20", plan.Padding)
	}

	plan, err = PlanGrid(2, 1920, 1080, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Padding != 27 {
		t.Fatalf("padding = %d, want min(1920,1080)/40", plan.Padding)
	}
}

func TestPlanGridDeterministic(t *testing.T) {
	first, err := PlanGrid(5, 1920, 1080, []Orientation{Portrait, Landscape, Square, Portrait, Landscape})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	second, err := PlanGrid(5, 1920, 1080, []Orientation{Portrait, Landscape, Square, Portrait, Landscape})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(first.Positions) != len(second.Positions) {
		t.Fatalf("position counts differ")
	}
	for idx := range first.Positions {
		if first.Positions[idx] != second.Positions[idx] {
			t.Fatalf("position %d differs between identical plans", idx)
		}
	}
}
