package ndrange

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		global  Range
		local   Range
		wantErr error
	}{
		{"exact 16x16 by 8x8", R(16, 16), R(8, 8), nil},
		{"rectangular", R(32, 48), R(4, 16), nil},
		{"single group", R(8, 8), R(8, 8), nil},
		{"rows not divisible", R(17, 16), R(8, 8), ErrNotDivisible},
		{"cols not divisible", R(16, 20), R(8, 8), ErrNotDivisible},
		{"empty global", R(0, 16), R(8, 8), ErrEmptyRange},
		{"negative local", R(16, 16), R(-8, 8), ErrEmptyRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nd, err := New(tt.global, tt.local)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New(%v, %v) err = %v, want %v", tt.global, tt.local, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%v, %v) unexpected error: %v", tt.global, tt.local, err)
			}
			if nd.Global != tt.global || nd.Local != tt.local {
				t.Errorf("New stored %v/%v, want %v/%v", nd.Global, nd.Local, tt.global, tt.local)
			}
		})
	}
}

func TestGroupOffset(t *testing.T) {
	nd, err := New(R(32, 48), R(8, 16))
	if err != nil {
		t.Fatal(err)
	}

	if got := nd.GroupCount(); got != R(4, 3) {
		t.Fatalf("GroupCount = %v, want 4x3", got)
	}
	if got := nd.Groups(); got != 12 {
		t.Fatalf("Groups = %d, want 12", got)
	}

	tests := []struct {
		linear int
		group  Range
		offset Range
	}{
		{0, R(0, 0), R(0, 0)},
		{1, R(0, 1), R(0, 16)},
		{3, R(1, 0), R(8, 0)},
		{11, R(3, 2), R(24, 32)},
	}
	for _, tt := range tests {
		g := nd.Group(tt.linear)
		if g != tt.group {
			t.Errorf("Group(%d) = %v, want %v", tt.linear, g, tt.group)
		}
		if off := nd.GroupOffset(g); off != tt.offset {
			t.Errorf("GroupOffset(%v) = %v, want %v", g, off, tt.offset)
		}
	}
}

func TestItemGlobalCoordinate(t *testing.T) {
	nd, _ := New(R(16, 16), R(8, 8))
	it := nd.Item(R(1, 0), R(3, 5))
	if it.Global != R(11, 5) {
		t.Errorf("Item.Global = %v, want 11x5", it.Global)
	}
	if it.Group != R(1, 0) || it.Local != R(3, 5) {
		t.Errorf("Item = %+v, group/local not preserved", it)
	}
}

// Every output coordinate belongs to exactly one group and the union of all
// group regions is the full output domain.
func TestPartitionDisjointness(t *testing.T) {
	configs := []struct {
		global Range
		local  Range
	}{
		{R(16, 16), R(8, 8)},
		{R(24, 40), R(8, 8)},
		{R(12, 30), R(3, 5)},
		{R(7, 7), R(1, 1)},
		{R(64, 64), R(16, 4)},
	}

	for _, c := range configs {
		t.Run(c.global.String()+"/"+c.local.String(), func(t *testing.T) {
			nd, err := New(c.global, c.local)
			if err != nil {
				t.Fatal(err)
			}
			owners := make([]int, c.global.Size())
			groups := 0
			nd.ForEachGroup(func(g Range) {
				groups++
				nd.ForEachItem(g, func(it Item) {
					if !c.global.Contains(it.Global) {
						t.Fatalf("group %v writes %v outside %v", g, it.Global, c.global)
					}
					owners[c.global.Linear(it.Global)]++
				})
			})
			if groups != nd.Groups() {
				t.Errorf("visited %d groups, want %d", groups, nd.Groups())
			}
			for i, n := range owners {
				if n != 1 {
					t.Fatalf("output %d written by %d workers, want 1", i, n)
				}
			}
		})
	}
}

// Every scratch cell is visited exactly once across the workers of a group,
// and the owner of each cell is (i mod tileH, j mod tileW).
func TestCoverCompleteness(t *testing.T) {
	for _, tile := range []Range{R(1, 1), R(2, 3), R(4, 4), R(8, 8), R(16, 4), R(3, 7)} {
		for halo := 0; halo <= 12; halo++ {
			nd := NDRange{Global: tile, Local: tile}
			extent := nd.ScratchExtent(halo)

			visits := make([]int, extent.Size())
			nd.ForEachItem(R(0, 0), func(it Item) {
				loads := 0
				Cover(it.Local, tile, extent, func(i, j int) {
					cell := R(i, j)
					if !extent.Contains(cell) {
						t.Fatalf("tile %v halo %d: worker %v visits %v outside %v", tile, halo, it.Local, cell, extent)
					}
					if owner := Owner(cell, tile); owner != it.Local {
						t.Fatalf("tile %v halo %d: cell %v loaded by %v, owner %v", tile, halo, cell, it.Local, owner)
					}
					visits[extent.Linear(cell)]++
					loads++
				})
				if bound := LoadsPerWorker(tile, extent); loads > bound {
					t.Fatalf("tile %v halo %d: worker %v loaded %d cells, bound %d", tile, halo, it.Local, loads, bound)
				}
			})

			for idx, n := range visits {
				if n != 1 {
					t.Fatalf("tile %v halo %d: cell %d visited %d times, want 1", tile, halo, idx, n)
				}
			}
		}
	}
}

func TestLoadsPerWorker(t *testing.T) {
	tests := []struct {
		tile   Range
		extent Range
		want   int
	}{
		{R(8, 8), R(8, 8), 1},
		{R(8, 8), R(10, 10), 4},
		{R(8, 8), R(18, 18), 9},
		{R(16, 16), R(18, 18), 4},
		{R(8, 4), R(12, 6), 4},
	}
	for _, tt := range tests {
		if got := LoadsPerWorker(tt.tile, tt.extent); got != tt.want {
			t.Errorf("LoadsPerWorker(%v, %v) = %d, want %d", tt.tile, tt.extent, got, tt.want)
		}
	}
}
