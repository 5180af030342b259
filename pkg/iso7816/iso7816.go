/*
Package iso7816 implements the APDU layer used to drive storage cards through a
PC/SC reader: command encoding, response parsing, status word analysis and the
transaction trace.

# Fundamentals

The communication with a card is strictly synchronous:
 1. The Host sends a Command APDU (Header + Optional Body).
 2. The reader or card returns a Response APDU (Optional Body + Trailer SW1/SW2).

Storage cards such as Mifare Classic do not speak APDUs. PC/SC Part 3 defines
pseudo-APDUs with CLA 0xFF (LOAD KEYS, GENERAL AUTHENTICATE, READ BINARY,
UPDATE BINARY, GET DATA) that the reader translates into the card's native
protocol and answers with an ISO status word.

# Status Words

  - 0x9000: Success. The only value treated as success.
  - Anything else: failure, preserved verbatim for the caller and the log.

# Usage Example

	rec := iso7816.NewRecorder()
	client := iso7816.NewClient(card, rec)

	cmd := iso7816.NewCommandAPDU(iso7816.CLA_PCSC,
	    iso7816.MustInstruction(iso7816.INS_GET_DATA), 0x00, 0x00, nil, iso7816.MaxShortLe)
	tx, err := client.Send(cmd)
	if err != nil {
	    // *iso7816.ChannelFault: the card or reader went away
	    log.Fatal(err)
	}
	if !tx.IsSuccess() {
	    fmt.Println(tx.Response.Status.Verbose())
	}

	for _, entry := range rec.All() {
	    fmt.Println(entry)
	}

The Client and Recorder hold no locks: one exchange at a time per channel is
the caller's responsibility.
*/
package iso7816
