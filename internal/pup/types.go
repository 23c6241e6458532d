package pup

// Powered-Up advertisement protocol constants.
const (
	// ManufacturerID is the BLE company identifier carried by both command
	// and status frames. The hub firmware filters on this value.
	ManufacturerID uint16 = 919 // 0x0397

	// frameLength is the advertising-data length byte. The counterpart
	// firmware expects 0x08 regardless of actual payload length, so it is
	// fixed rather than computed.
	frameLength byte = 0x08

	// adTypeManufacturerData is the BLE AD type for manufacturer data.
	adTypeManufacturerData byte = 0xFF

	// reserved is the unused byte between channel and command type.
	reserved byte = 0x00
)

// Command type codes.
const (
	// TypeTrain carries a signed 8-bit power value or a self-drive sentinel.
	TypeTrain byte = 0x61

	// TypeSwitch carries a signed 16-bit little-endian value encoding
	// switch number and position.
	TypeSwitch byte = 0x62
)

// Train payload values.
const (
	// MaxPower bounds the normal power range to ±100.
	MaxPower = 100

	// SelfDriveEnable and SelfDriveDisable are sentinel power values
	// outside the ±100 range. They repurpose the power field and must not
	// be emitted by EncodeTrainPower.
	SelfDriveEnable  int8 = 101
	SelfDriveDisable int8 = 102
)

// Switch payload values.
const (
	// MinSwitchNumber and MaxSwitchNumber map to ports A..D.
	MinSwitchNumber = 1
	MaxSwitchNumber = 4

	// PositionStraight and PositionDiverging are the two switch positions.
	PositionStraight  = 0
	PositionDiverging = 1

	// switchNumberMultiplier packs switch number and position into one
	// int16: value = switchNumber*1000 + position.
	switchNumberMultiplier = 1000
)

// Frame layout offsets.
const (
	offsetChannel  = 4
	offsetType     = 6
	offsetPayload  = 7
	trainFrameLen  = 8
	switchFrameLen = 9

	// offsetStatusChannel is where a status payload carries the command
	// channel the hub listens on. Hubs broadcast status on a channel of
	// their own, so the identity that matters rides inside the payload.
	offsetStatusChannel = 2

	// minStatusLength keeps the channel byte and the two trailing value
	// bytes from overlapping.
	minStatusLength = 5
)

// Command is a decoded command frame. Exactly one of the three command
// shapes is populated, indicated by Type.
type Command struct {
	// Channel is the target hub's broadcast channel.
	Channel byte

	// Type is TypeTrain or TypeSwitch.
	Type byte

	// Power is the signed power value for train frames. Only meaningful
	// when Type == TypeTrain and SelfDrive is false.
	Power int8

	// SelfDrive is true when a train frame carries a self-drive sentinel;
	// SelfDriveOn distinguishes enable from disable.
	SelfDrive   bool
	SelfDriveOn bool

	// SwitchNumber (1..4) and Position (0/1) for switch frames.
	SwitchNumber int
	Position     int
}

// TrainStatus is the decoded manufacturer data of a train status
// advertisement.
type TrainStatus struct {
	// Channel is the command channel the hub listens on, taken from the
	// payload rather than the channel it broadcasts status on.
	Channel byte

	// Running is true when the hub reports a non-zero status byte.
	Running bool

	// Power is the signed power the hub reports it is applying.
	Power int8
}

// SwitchStatus is the decoded manufacturer data of a switch status
// advertisement. Positions and Connected are 4-bit fields keyed by
// switch number; use PortDiverging and PortConnected to read them.
type SwitchStatus struct {
	// Channel is the command channel the hub listens on.
	Channel byte

	// Positions holds one bit per port: set means diverging.
	Positions byte

	// Connected holds one bit per port: set means a motor is attached.
	Connected byte
}

// portBit returns the bit for switch number n (1..4). Port A occupies the
// high bit of the nibble: A=0b1000, B=0b0100, C=0b0010, D=0b0001.
func portBit(n int) byte {
	return 1 << (MaxSwitchNumber - n)
}

// PortDiverging reports whether the given switch number (1..4) is in the
// diverging position. Out-of-range numbers report false.
func (s SwitchStatus) PortDiverging(n int) bool {
	if n < MinSwitchNumber || n > MaxSwitchNumber {
		return false
	}
	return s.Positions&portBit(n) != 0
}

// PortConnected reports whether the given switch number (1..4) has a
// motor attached. Out-of-range numbers report false.
func (s SwitchStatus) PortConnected(n int) bool {
	if n < MinSwitchNumber || n > MaxSwitchNumber {
		return false
	}
	return s.Connected&portBit(n) != 0
}
