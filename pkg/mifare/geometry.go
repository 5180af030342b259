package mifare

import (
	"fmt"
	"strings"
)

// SectorRun is a run of consecutive sectors sharing the same size.
type SectorRun struct {
	Sectors         int
	BlocksPerSector int
}

// Geometry describes the memory layout of a card. The protocol layer never
// assumes a layout; callers pick one of the presets or build their own.
type Geometry struct {
	Name   string
	Layout []SectorRun
}

var (
	// GeometryMini is the Mifare Mini layout: 5 sectors of 4 blocks (320 bytes).
	GeometryMini = Geometry{Name: "Mifare Mini", Layout: []SectorRun{{5, 4}}}

	// Geometry1K is the Mifare Classic 1K layout: 16 sectors of 4 blocks.
	Geometry1K = Geometry{Name: "Mifare Classic 1K", Layout: []SectorRun{{16, 4}}}

	// Geometry4K is the Mifare Classic 4K layout: 32 sectors of 4 blocks
	// followed by 8 sectors of 16 blocks.
	Geometry4K = Geometry{Name: "Mifare Classic 4K", Layout: []SectorRun{{32, 4}, {8, 16}}}
)

// GeometryByName maps the configuration names "mini", "1k" and "4k" to presets.
func GeometryByName(name string) (Geometry, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mini":
		return GeometryMini, nil
	case "1k":
		return Geometry1K, nil
	case "4k":
		return Geometry4K, nil
	}
	return Geometry{}, fmt.Errorf("unknown geometry %q (want mini, 1k or 4k)", name)
}

// Sectors returns the number of sectors.
func (g Geometry) Sectors() int {
	n := 0
	for _, run := range g.Layout {
		n += run.Sectors
	}
	return n
}

// TotalBlocks returns the number of blocks of the whole card.
func (g Geometry) TotalBlocks() int {
	n := 0
	for _, run := range g.Layout {
		n += run.Sectors * run.BlocksPerSector
	}
	return n
}

// BlocksInSector returns the size of sector s, or 0 if s does not exist.
func (g Geometry) BlocksInSector(s int) int {
	_, size := g.sector(s)
	return size
}

// FirstBlock returns the absolute index of the first block of sector s, or -1.
func (g Geometry) FirstBlock(s int) int {
	first, size := g.sector(s)
	if size == 0 {
		return -1
	}
	return first
}

// TrailerBlock returns the absolute index of the sector trailer of s, or -1.
func (g Geometry) TrailerBlock(s int) int {
	first, size := g.sector(s)
	if size == 0 {
		return -1
	}
	return first + size - 1
}

func (g Geometry) sector(s int) (first, size int) {
	if s < 0 {
		return 0, 0
	}
	for _, run := range g.Layout {
		if s < run.Sectors {
			return first + s*run.BlocksPerSector, run.BlocksPerSector
		}
		s -= run.Sectors
		first += run.Sectors * run.BlocksPerSector
	}
	return 0, 0
}

// Locate converts an absolute block index to its sector-relative address.
func (g Geometry) Locate(abs int) (Address, error) {
	if abs < 0 || abs >= g.TotalBlocks() {
		return Address{}, fmt.Errorf("%w: block %d out of range (0..%d)", ErrInvalidAddress, abs, g.TotalBlocks()-1)
	}
	sector, first := 0, 0
	for _, run := range g.Layout {
		span := run.Sectors * run.BlocksPerSector
		if abs < first+span {
			offset := abs - first
			return SectorBlock(sector+offset/run.BlocksPerSector, offset%run.BlocksPerSector), nil
		}
		sector += run.Sectors
		first += span
	}
	return Address{}, fmt.Errorf("%w: block %d", ErrInvalidAddress, abs)
}

// IsTrailer reports whether the absolute block abs is a sector trailer.
func (g Geometry) IsTrailer(abs int) bool {
	addr, err := g.Locate(abs)
	if err != nil {
		return false
	}
	return addr.block == g.BlocksInSector(addr.sector)-1
}

// MaxBlock is the highest block number a command frame can carry.
const MaxBlock = 0xFF

// Resolve returns the canonical absolute block number of a. Blocks past
// MaxBlock exist only in hand-built layouts and are rejected.
func (g Geometry) Resolve(a Address) (byte, error) {
	abs, err := g.resolve(a)
	if err != nil {
		return 0, err
	}
	if abs > MaxBlock {
		return 0, fmt.Errorf("%w: block %d not addressable (max %d)", ErrInvalidAddress, abs, MaxBlock)
	}
	return byte(abs), nil
}

func (g Geometry) resolve(a Address) (int, error) {
	if a.absolute {
		if a.block < 0 || a.block >= g.TotalBlocks() {
			return 0, fmt.Errorf("%w: block %d out of range (0..%d)", ErrInvalidAddress, a.block, g.TotalBlocks()-1)
		}
		return a.block, nil
	}

	first, size := g.sector(a.sector)
	if size == 0 {
		return 0, fmt.Errorf("%w: sector %d out of range (0..%d)", ErrInvalidAddress, a.sector, g.Sectors()-1)
	}
	if a.block < 0 || a.block >= size {
		return 0, fmt.Errorf("%w: block %d out of range for sector %d (0..%d)", ErrInvalidAddress, a.block, a.sector, size-1)
	}
	return first + a.block, nil
}

// Address designates a block either by sector and block within the sector,
// or by its absolute index.
type Address struct {
	sector   int
	block    int
	absolute bool
}

// SectorBlock addresses block b of sector s.
func SectorBlock(s, b int) Address {
	return Address{sector: s, block: b}
}

// AbsoluteBlock addresses a block by its absolute index.
func AbsoluteBlock(n int) Address {
	return Address{block: n, absolute: true}
}

// IsAbsolute reports whether the address was built with AbsoluteBlock.
func (a Address) IsAbsolute() bool { return a.absolute }

// Sector returns the sector of a sector-relative address.
func (a Address) Sector() int { return a.sector }

// Block returns the block within the sector, or the absolute index.
func (a Address) Block() int { return a.block }

func (a Address) String() string {
	if a.absolute {
		return fmt.Sprintf("block %d", a.block)
	}
	return fmt.Sprintf("sector %d block %d", a.sector, a.block)
}
