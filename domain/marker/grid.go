package marker

// Grid is a sampled marker, Grid[row][col] true for black cells.
type Grid [GridCells][GridCells]bool

// Decode checks the black border ring of g and returns how many positions
// the corner order must be rotated so it starts at the marker's top-left.
// A grid without a unique orientation cell keeps its order.
func Decode(g Grid) (turns int, ok bool) {
	if !validGrid(g) {
		return 0, false
	}
	return max(orientation(g), 0), true
}
