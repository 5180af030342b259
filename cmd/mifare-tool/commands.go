package main

import (
	"errors"
	"fmt"

	"github.com/gregLibert/mifare-tools/internal/config"
	"github.com/gregLibert/mifare-tools/pkg/iso7816"
	"github.com/gregLibert/mifare-tools/pkg/mifare"
	"github.com/gregLibert/mifare-tools/pkg/reader"
	"github.com/gregLibert/mifare-tools/pkg/session"
	"github.com/gregLibert/mifare-tools/pkg/tlv"
)

func listReaders() error {
	readers, err := reader.ListReaders()
	if err != nil {
		return err
	}
	if len(readers) == 0 {
		fmt.Println("No smart card reader found.")
		return nil
	}
	for i, r := range readers {
		fmt.Printf("[%d] %s\n", i, r)
	}
	return nil
}

func showInfo(s *session.Session, uid []byte) error {
	fmt.Printf("UID:      %s\n", tlv.Spaced(uid))
	fmt.Printf("Geometry: %s (%d sectors, %d blocks)\n", s.Geometry().Name, s.Geometry().Sectors(), s.Geometry().TotalBlocks())
	if info := s.CardInfo(); info != nil {
		fmt.Println(info.Describe())
	} else {
		fmt.Printf("ATR:      %s\n", tlv.Spaced(s.ATR()))
	}
	return nil
}

// printLastReport describes the last exchange as a block operation.
func printLastReport(s *session.Session) {
	last := s.Trace().Last()
	if last == nil {
		return
	}
	report, err := mifare.NewBlockReport(s.Geometry(), *last)
	if err != nil {
		logger.Debugf("no block report: %v", err)
		return
	}
	fmt.Println(report.Describe())
}

func readBlock(s *session.Session, cfg *config.Config, cmd *readCmd) error {
	key, keyType, err := sectorKey(cfg)
	if err != nil {
		return err
	}
	addr := mifare.SectorBlock(cmd.Sector, cmd.Block)
	if err := s.Login(key, keyType, addr); err != nil {
		return err
	}
	_, err = s.ReadBlock(addr)
	printLastReport(s)
	return err
}

func writeBlock(s *session.Session, cfg *config.Config, cmd *writeCmd) error {
	data, err := mifare.ParseBlockData(cmd.Data)
	if err != nil {
		return err
	}
	addr := mifare.SectorBlock(cmd.Sector, cmd.Block)
	abs, err := s.Geometry().Resolve(addr)
	if err != nil {
		return err
	}

	if s.Geometry().IsTrailer(int(abs)) {
		if !cmd.Force {
			return fmt.Errorf("block %d is a sector trailer, use --force to overwrite keys and access bits", abs)
		}
		// Corrupt access bits lock the sector for good.
		if _, err := mifare.SplitTrailer(data).Conditions(); err != nil {
			return err
		}
	}

	key, keyType, err := sectorKey(cfg)
	if err != nil {
		return err
	}
	if err := s.Login(key, keyType, addr); err != nil {
		return err
	}
	err = s.WriteBlock(addr, data)
	printLastReport(s)
	return err
}

func dump(s *session.Session, cfg *config.Config) error {
	key, keyType, err := sectorKey(cfg)
	if err != nil {
		return err
	}
	g := s.Geometry()

	fmt.Println("\n=============================================")
	fmt.Printf(" DUMP %s (key %s)\n", g.Name, keyType)
	fmt.Println("=============================================")

	for sector := 0; sector < g.Sectors(); sector++ {
		if s.State().Kind != session.KeyLoaded && s.State().Kind != session.Authenticated {
			if err := s.LoadKey(key, keyType); err != nil {
				return err
			}
		}

		fmt.Printf("\n[Sector %d]\n", sector)
		blocks, err := s.ReadSector(sector)
		first := g.FirstBlock(sector)
		for i, b := range blocks {
			fmt.Printf("  %3d  %s  |%s|\n", first+i, b, tlv.MakeSafeASCII(b[:]))
		}
		if err == nil {
			continue
		}
		if errors.Is(err, iso7816.ErrChannelFault) {
			return err
		}
		fmt.Printf("  -- %v\n", err)
	}
	return nil
}

func showTrailer(s *session.Session, cfg *config.Config, cmd *trailerCmd) error {
	key, keyType, err := sectorKey(cfg)
	if err != nil {
		return err
	}
	if err := s.LoadKey(key, keyType); err != nil {
		return err
	}

	trailer, err := s.ReadTrailer(cmd.Sector)
	if err != nil {
		return err
	}
	fmt.Printf("Key A:       %s\n", trailer.KeyA)
	fmt.Printf("Access bits: %s\n", tlv.Spaced(trailer.Access[:]))
	fmt.Printf("GPB:         %02X\n", trailer.GPB)
	fmt.Printf("Key B:       %s\n", trailer.KeyB)

	ac, err := trailer.Conditions()
	if err != nil {
		return err
	}
	fmt.Println(ac.Describe())
	return nil
}
