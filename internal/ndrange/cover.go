package ndrange

// Cover runs the strided covering loop for the worker at local inside a
// group of size tile, over a scratch extent that may exceed tile.
//
// Starting at the worker's own coordinate, rows advance by tile.Rows and
// columns by tile.Cols until they leave extent. Cell (i, j) of extent is
// visited by exactly the worker (i mod tile.Rows, j mod tile.Cols), so the
// workers of a group partition the extent without overlap.
func Cover(local, tile, extent Range, fn func(i, j int)) {
	for i := local.Rows; i < extent.Rows; i += tile.Rows {
		for j := local.Cols; j < extent.Cols; j += tile.Cols {
			fn(i, j)
		}
	}
}

// Owner returns the local coordinate of the worker that loads cell.
func Owner(cell, tile Range) Range {
	return Range{Rows: cell.Rows % tile.Rows, Cols: cell.Cols % tile.Cols}
}

// LoadsPerWorker returns the upper bound on cells one worker loads:
// ceil(extent.Rows/tile.Rows) * ceil(extent.Cols/tile.Cols).
func LoadsPerWorker(tile, extent Range) int {
	return ceilDiv(extent.Rows, tile.Rows) * ceilDiv(extent.Cols, tile.Cols)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
