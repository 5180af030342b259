package session

import (
	"fmt"

	"github.com/gregLibert/mifare-tools/pkg/mifare"
)

// ReadSector reads every block of sector, trailer included, authenticating
// each block with the loaded key first. It stops at the first failure and
// returns the blocks read so far.
func (s *Session) ReadSector(sector int) ([]mifare.BlockData, error) {
	switch s.kind() {
	case Disconnected:
		return nil, ErrNotConnected
	case Connected:
		return nil, ErrKeyNotLoaded
	}
	size := s.geometry.BlocksInSector(sector)
	if size == 0 {
		return nil, fmt.Errorf("%w: sector %d out of range (0..%d)", mifare.ErrInvalidAddress, sector, s.geometry.Sectors()-1)
	}

	blocks := make([]mifare.BlockData, 0, size)
	for b := 0; b < size; b++ {
		addr := mifare.SectorBlock(sector, b)
		if err := s.Authenticate(addr); err != nil {
			return blocks, err
		}
		data, err := s.ReadBlock(addr)
		if err != nil {
			return blocks, err
		}
		blocks = append(blocks, data)
	}
	return blocks, nil
}

// ReadTrailer authenticates and reads the trailer of sector.
func (s *Session) ReadTrailer(sector int) (mifare.Trailer, error) {
	trailer := s.geometry.TrailerBlock(sector)
	if trailer < 0 {
		return mifare.Trailer{}, fmt.Errorf("%w: sector %d out of range (0..%d)", mifare.ErrInvalidAddress, sector, s.geometry.Sectors()-1)
	}
	addr := mifare.SectorBlock(sector, s.geometry.BlocksInSector(sector)-1)
	if err := s.Authenticate(addr); err != nil {
		return mifare.Trailer{}, err
	}
	data, err := s.ReadBlock(addr)
	if err != nil {
		return mifare.Trailer{}, err
	}
	return mifare.SplitTrailer(data), nil
}

// ReadAccessConditions reads the trailer of sector and decodes its access bits.
func (s *Session) ReadAccessConditions(sector int) (mifare.AccessConditions, error) {
	trailer, err := s.ReadTrailer(sector)
	if err != nil {
		return mifare.AccessConditions{}, err
	}
	return trailer.Conditions()
}
