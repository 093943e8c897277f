package iso7816

import (
	"fmt"
)

// Class Byte (CLA) according to ISO/IEC 7816-4.
//
// Bit 8: Proprietary (1) or Interindustry (0).
// Bit 7: First (0) or Further (1) interindustry range.
// Bit 5: Command chaining.
//
// First interindustry (00xx xxxx): SM on bits 4-3, logical channel 0-3 on bits 2-1.
// Further interindustry (01xx xxxx): SM on bit 6, logical channel 4-19 encoded
// as (channel - 4) on bits 4-1.
//
// The logical channel number is what lets several applications stay selected
// on one card. Opening and closing those channels is done with MANAGE CHANNEL.

// MaxLogicalChannel is the highest channel number a CLA byte can address.
const MaxLogicalChannel = 19

// SecureMessaging defines the security level applied to the APDU.
type SecureMessaging int

const (
	SMNone         SecureMessaging = 0
	SMProprietary  SecureMessaging = 1
	SMHeaderNoProc SecureMessaging = 2
	SMHeaderAuth   SecureMessaging = 3
)

// Class represents the parsed ISO 7816-4 Class byte (CLA).
type Class struct {
	Raw             byte
	IsProprietary   bool
	IsChained       bool
	SecureMessaging SecureMessaging
	Channel         uint8
}

// NewClass decodes a raw CLA byte.
func NewClass(cla byte) (Class, error) {
	if cla == 0xFF {
		return Class{}, fmt.Errorf("invalid CLA value: 0xFF is reserved")
	}

	c := Class{Raw: cla}

	if isSet(cla, 8) {
		c.IsProprietary = true
		return c, nil
	}

	c.IsChained = isSet(cla, 5)

	if !isSet(cla, 7) {
		c.SecureMessaging = SecureMessaging(bitRange(cla, 4, 3))
		c.Channel = bitRange(cla, 2, 1)
		return c, nil
	}

	if isSet(cla, 6) {
		c.SecureMessaging = SMHeaderNoProc
	}
	c.Channel = bitRange(cla, 4, 1) + 4
	return c, nil
}

// NewInterindustryClass builds a Class, choosing first or further interindustry
// encoding from the channel number.
func NewInterindustryClass(isChained bool, sm SecureMessaging, channel uint8) (Class, error) {
	if channel > MaxLogicalChannel {
		return Class{}, fmt.Errorf("channel %d out of range (max %d)", channel, MaxLogicalChannel)
	}
	if channel >= 4 && (sm == SMProprietary || sm == SMHeaderAuth) {
		return Class{}, fmt.Errorf("SM indicator %d not supported for further interindustry range (ch 4-19)", sm)
	}

	c := Class{
		IsChained:       isChained,
		SecureMessaging: sm,
		Channel:         channel,
	}

	raw, err := c.Encode()
	if err != nil {
		return Class{}, err
	}
	c.Raw = raw
	return c, nil
}

// OnChannel returns a copy of the class addressing another logical channel.
// Proprietary classes below FF use the interindustry channel coding on their
// low seven bits, as GlobalPlatform cards do (80 on channel 1 is 81, on
// channel 4 it is C0).
func (c Class) OnChannel(channel uint8) (Class, error) {
	if c.IsProprietary {
		return c.proprietaryOnChannel(channel)
	}
	sm := c.SecureMessaging
	if channel >= 4 && sm != SMNone {
		sm = SMHeaderNoProc
	}
	return NewInterindustryClass(c.IsChained, sm, channel)
}

func (c Class) proprietaryOnChannel(channel uint8) (Class, error) {
	inner, err := NewClass(c.Raw &^ bit(8))
	if err != nil {
		return Class{}, err
	}
	inner, err = inner.OnChannel(channel)
	if err != nil {
		return Class{}, err
	}

	raw := inner.Raw | bit(8)
	if raw == 0xFF {
		return Class{}, fmt.Errorf("proprietary CLA 0x%02X cannot address channel %d", c.Raw, channel)
	}
	return Class{Raw: raw, IsProprietary: true, Channel: channel}, nil
}

// Encode converts the Class back to its byte representation.
func (c *Class) Encode() (byte, error) {
	if c.IsProprietary {
		return c.Raw, nil
	}
	if c.Channel > MaxLogicalChannel {
		return 0, fmt.Errorf("channel %d out of range (max %d)", c.Channel, MaxLogicalChannel)
	}

	var res byte
	if c.IsChained {
		res |= bit(5)
	}

	if c.Channel <= 3 {
		res |= byte(c.SecureMessaging) << 2
		res |= c.Channel
		return res, nil
	}

	res |= bit(7)
	if c.SecureMessaging != SMNone {
		res |= bit(6)
	}
	res |= c.Channel - 4
	return res, nil
}

// Verbose returns a human-readable description of the CLA byte configuration.
func (c Class) Verbose() string {
	if c.IsProprietary {
		return fmt.Sprintf("Class: Proprietary (0x%02X)", c.Raw)
	}

	rangeName := "First Interindustry (Ch 0-3)"
	if c.Channel >= 4 {
		rangeName = "Further Interindustry (Ch 4-19)"
	}

	smDesc := "Unknown"
	switch c.SecureMessaging {
	case SMNone:
		smDesc = "None"
	case SMProprietary:
		smDesc = "Proprietary"
	case SMHeaderNoProc:
		smDesc = "ISO (Header not processed)"
	case SMHeaderAuth:
		smDesc = "ISO (Header authenticated)"
	}

	chaining := "Last or only command"
	if c.IsChained {
		chaining = "More commands follow (Chaining)"
	}

	return fmt.Sprintf(
		"Range: %s\nChaining: %s\nSecure Messaging: %s\nLogical Channel: %d",
		rangeName, chaining, smDesc, c.Channel,
	)
}

// RewriteChannel returns a copy of a raw C-APDU whose CLA addresses channel.
// CLA FF has no channel coding and is rejected.
func RewriteChannel(command []byte, channel uint8) ([]byte, error) {
	if len(command) < HeaderLength {
		return nil, fmt.Errorf("command too short: length %d", len(command))
	}

	cls, err := NewClass(command[0])
	if err != nil {
		return nil, err
	}
	cls, err = cls.OnChannel(channel)
	if err != nil {
		return nil, err
	}
	cla, err := cls.Encode()
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(command))
	copy(out, command)
	out[0] = cla
	return out, nil
}
