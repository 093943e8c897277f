/*
Package iso7816 implements the ISO/IEC 7816 building blocks needed to talk to a
smart card or Secure Element: command and response APDUs, status words, the
CLA and INS bytes, SELECT, MANAGE CHANNEL and the GET RESPONSE procedure.

# Fundamentals

The communication with a smart card is strictly synchronous:
 1. The host sends a Command APDU (header + optional body).
 2. The card processes it and returns a Response APDU (optional body + SW1 SW2).

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Success.
  - 0x61XX: Success, XX response bytes are still available.
  - 0x6CXX: Wrong length, XX is the correct Le.
  - Other: warnings and errors.

# Logical Channels

The CLA byte carries the logical channel number (0 to 19). Channel 0 is the
basic channel and is always open. Further channels are opened with MANAGE
CHANNEL, and each one keeps its own selected application. RewriteChannel
moves an existing command onto another channel.

# Usage Example: selecting an application

	client := iso7816.NewClient(card)
	cls, _ := iso7816.NewClass(0x00)

	trace, err := client.Send(iso7816.SelectByAID(cls, aid))
	if err != nil {
	    log.Fatal(err)
	}
	if !trace.IsSuccess() {
	    log.Fatalf("select refused: %s", trace.Response().Status.Verbose())
	}

	fci, err := iso7816.ParseSelectData(trace.Response().Data, iso7816.ReturnFCI)
	if err == nil && fci != nil {
	    fmt.Printf("Selected AID: %X\n", fci.AID())
	}
*/
package iso7816
