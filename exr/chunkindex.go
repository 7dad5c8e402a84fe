package exr

// LevelDim computes a single-axis level dimension for a tiled part: for
// ROUND_DOWN it is max(1, n>>l); for ROUND_UP it halves n (rounding up) l
// times, clamped to at least 1.
func LevelDim(n int, l int, rounding LevelRoundingMode) int {
	if rounding == LevelRoundDown {
		d := n >> uint(l)
		if d < 1 {
			d = 1
		}
		return d
	}
	for i := 0; i < l; i++ {
		n = (n + 1) / 2
		if n < 1 {
			n = 1
		}
	}
	return n
}

// NumLevels returns the number of mipmap/ripmap levels along one axis: the
// smallest L such that level L-1 has dimension <= 1.
func NumLevels(n int, rounding LevelRoundingMode) int {
	if n <= 0 {
		return 1
	}
	levels := 1
	d := n
	for d > 1 {
		if rounding == LevelRoundDown {
			d = d >> 1
			if d < 1 {
				d = 1
			}
		} else {
			d = (d + 1) / 2
		}
		levels++
	}
	return levels
}

// NumTilesAtLevel returns (numXTiles, numYTiles) for a level of dimensions
// (levelW, levelH) and tile size (tileW, tileH).
func NumTilesAtLevel(levelW, levelH, tileW, tileH int) (int, int) {
	nx := (levelW + tileW - 1) / tileW
	ny := (levelH + tileH - 1) / tileH
	return nx, ny
}

// LevelGeometry describes the pixel dimensions and tile-grid size of one
// mip/rip level.
type LevelGeometry struct {
	Width, Height int
	NumXTiles     int
	NumYTiles     int
}

// TileLevels computes, for a part's tile description and full-resolution
// dimensions, the sequence of level geometries a reader/writer must
// enumerate, and the total chunk count across all levels.
//
// For ONE_LEVEL there is a single entry. For MIPMAP, levelX == levelY and
// the single axis drives both. For RIPMAP, axes are independent and levels
// are the Cartesian product enumerated with Y (ly) varying slowest — see
// the ripmap enumeration order note in DESIGN.md (an explicitly flagged,
// unresolved open question carried over from the source spec rather than
// guessed).
func TileLevels(td TileDescription, width, height int) (levels []LevelGeometry, levelsX, levelsY int) {
	tw, th := int(td.XSize), int(td.YSize)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	switch td.Mode {
	case LevelModeOne:
		nx, ny := NumTilesAtLevel(width, height, tw, th)
		return []LevelGeometry{{Width: width, Height: height, NumXTiles: nx, NumYTiles: ny}}, 1, 1

	case LevelModeMipmap:
		n := NumLevels(maxInt(width, height), td.RoundingMode)
		out := make([]LevelGeometry, n)
		for l := 0; l < n; l++ {
			w := LevelDim(width, l, td.RoundingMode)
			h := LevelDim(height, l, td.RoundingMode)
			nx, ny := NumTilesAtLevel(w, h, tw, th)
			out[l] = LevelGeometry{Width: w, Height: h, NumXTiles: nx, NumYTiles: ny}
		}
		return out, n, n

	case LevelModeRipmap:
		lxCount := NumLevels(width, td.RoundingMode)
		lyCount := NumLevels(height, td.RoundingMode)
		out := make([]LevelGeometry, 0, lxCount*lyCount)
		for ly := 0; ly < lyCount; ly++ {
			for lx := 0; lx < lxCount; lx++ {
				w := LevelDim(width, lx, td.RoundingMode)
				h := LevelDim(height, ly, td.RoundingMode)
				nx, ny := NumTilesAtLevel(w, h, tw, th)
				out = append(out, LevelGeometry{Width: w, Height: h, NumXTiles: nx, NumYTiles: ny})
			}
		}
		return out, lxCount, lyCount

	default:
		nx, ny := NumTilesAtLevel(width, height, tw, th)
		return []LevelGeometry{{Width: width, Height: height, NumXTiles: nx, NumYTiles: ny}}, 1, 1
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// TileChunkIndex computes the deterministic chunk index for tile (tx,ty) in
// level (lx,ly), per spec §4.4:
//
//	ONE_LEVEL: index = ty*numXTiles + tx
//	MIPMAP:    index = sum(tiles in levels < level) + ty*numXTiles(level) + tx
//	RIPMAP:    index = sum(tiles in levels with ly'<ly) +
//	                    sum(tiles in (lx'<lx, same ly)) + ty*numXTiles(lx,ly) + tx
func TileChunkIndex(td TileDescription, width, height, tx, ty, lx, ly int) (int, error) {
	levels, levelsX, _ := TileLevels(td, width, height)

	switch td.Mode {
	case LevelModeOne:
		g := levels[0]
		if err := checkTileCoord(tx, ty, g); err != nil {
			return 0, err
		}
		return ty*g.NumXTiles + tx, nil

	case LevelModeMipmap:
		if lx != ly {
			return 0, errInvalidTileLevel
		}
		if lx < 0 || lx >= len(levels) {
			return 0, errInvalidTileLevel
		}
		sum := 0
		for l := 0; l < lx; l++ {
			sum += levels[l].NumXTiles * levels[l].NumYTiles
		}
		g := levels[lx]
		if err := checkTileCoord(tx, ty, g); err != nil {
			return 0, err
		}
		return sum + ty*g.NumXTiles + tx, nil

	case LevelModeRipmap:
		idx := ly*levelsX + lx
		if idx < 0 || idx >= len(levels) {
			return 0, errInvalidTileLevel
		}
		sum := 0
		for l := 0; l < idx; l++ {
			sum += levels[l].NumXTiles * levels[l].NumYTiles
		}
		g := levels[idx]
		if err := checkTileCoord(tx, ty, g); err != nil {
			return 0, err
		}
		return sum + ty*g.NumXTiles + tx, nil

	default:
		return 0, errInvalidTileLevel
	}
}

func checkTileCoord(tx, ty int, g LevelGeometry) error {
	if tx < 0 || ty < 0 || tx >= g.NumXTiles || ty >= g.NumYTiles {
		return errTileOutOfBounds
	}
	return nil
}

// TotalTileChunks returns the total number of tile chunks across all levels.
func TotalTileChunks(td TileDescription, width, height int) int {
	levels, _, _ := TileLevels(td, width, height)
	total := 0
	for _, g := range levels {
		total += g.NumXTiles * g.NumYTiles
	}
	return total
}
