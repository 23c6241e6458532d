package pup

import (
	"encoding/binary"
	"fmt"
)

// EncodeTrainPower encodes a train power command frame.
//
// The frame layout is:
//
//	Byte 0:   Length (fixed 0x08)
//	Byte 1:   AD type (0xFF, manufacturer data)
//	Byte 2-3: Manufacturer id 919 (little-endian)
//	Byte 4:   Broadcast channel
//	Byte 5:   Reserved (0x00)
//	Byte 6:   Command type (0x61)
//	Byte 7:   Signed power value
//
// Parameters:
//   - channel: Target hub broadcast channel
//   - power: Power percentage, must be within ±100
//
// Returns:
//   - []byte: Encoded frame ready for broadcast
//   - error: ErrInvalidCommand if power is outside ±100
func EncodeTrainPower(channel byte, power int) ([]byte, error) {
	if power < -MaxPower || power > MaxPower {
		return nil, fmt.Errorf("%w: power %d outside ±%d", ErrInvalidCommand, power, MaxPower)
	}
	return encodeTrain(channel, int8(power)), nil
}

// EncodeSelfDrive encodes a self-drive toggle frame.
//
// Self-drive reuses the train power field with sentinel values 101
// (enable) and 102 (disable), outside the normal power range.
func EncodeSelfDrive(channel byte, enabled bool) []byte {
	sentinel := SelfDriveDisable
	if enabled {
		sentinel = SelfDriveEnable
	}
	return encodeTrain(channel, sentinel)
}

func encodeTrain(channel byte, value int8) []byte {
	frame := make([]byte, trainFrameLen)
	frame[0] = frameLength
	frame[1] = adTypeManufacturerData
	binary.LittleEndian.PutUint16(frame[2:4], ManufacturerID)
	frame[offsetChannel] = channel
	frame[5] = reserved
	frame[offsetType] = TypeTrain
	frame[offsetPayload] = byte(value)
	return frame
}

// EncodeSwitchCommand encodes a switch position command frame.
//
// The payload is a signed 16-bit little-endian value packing switch
// number and position: value = switchNumber*1000 + position.
//
// Parameters:
//   - channel: Target hub broadcast channel
//   - switchNumber: 1..4, mapping to ports A..D
//   - position: 0 (straight) or 1 (diverging)
//
// Returns:
//   - []byte: Encoded frame ready for broadcast
//   - error: ErrInvalidCommand if switch number or position is out of range
func EncodeSwitchCommand(channel byte, switchNumber, position int) ([]byte, error) {
	if switchNumber < MinSwitchNumber || switchNumber > MaxSwitchNumber {
		return nil, fmt.Errorf("%w: switch number %d outside %d..%d",
			ErrInvalidCommand, switchNumber, MinSwitchNumber, MaxSwitchNumber)
	}
	if position != PositionStraight && position != PositionDiverging {
		return nil, fmt.Errorf("%w: position %d not in {0,1}", ErrInvalidCommand, position)
	}

	value := int16(switchNumber*switchNumberMultiplier + position)

	frame := make([]byte, switchFrameLen)
	frame[0] = frameLength // fixed, not computed; the firmware expects 0x08
	frame[1] = adTypeManufacturerData
	binary.LittleEndian.PutUint16(frame[2:4], ManufacturerID)
	frame[offsetChannel] = channel
	frame[5] = reserved
	frame[offsetType] = TypeSwitch
	binary.LittleEndian.PutUint16(frame[offsetPayload:], uint16(value))
	return frame, nil
}

// ManufacturerPayload strips the advertising-data header from a command
// frame, returning the bytes after the manufacturer id. This is the form
// the BLE stack expects when it assembles the advertisement itself.
func ManufacturerPayload(frame []byte) ([]byte, error) {
	if len(frame) < trainFrameLen {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidFrame, len(frame), trainFrameLen)
	}
	return frame[offsetChannel:], nil
}

// DecodeCommandFrame parses a full command frame back into a Command.
//
// It accepts both train and switch frames, validates the AD type and
// manufacturer id, and maps self-drive sentinels onto Command.SelfDrive
// rather than Command.Power.
//
// Returns:
//   - Command: Decoded command
//   - error: ErrInvalidFrame if the frame is malformed or foreign
func DecodeCommandFrame(frame []byte) (Command, error) {
	if len(frame) < trainFrameLen {
		return Command{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidFrame, len(frame), trainFrameLen)
	}
	if frame[1] != adTypeManufacturerData {
		return Command{}, fmt.Errorf("%w: AD type 0x%02X", ErrInvalidFrame, frame[1])
	}
	if id := binary.LittleEndian.Uint16(frame[2:4]); id != ManufacturerID {
		return Command{}, fmt.Errorf("%w: manufacturer id %d", ErrInvalidFrame, id)
	}

	cmd := Command{
		Channel: frame[offsetChannel],
		Type:    frame[offsetType],
	}

	switch cmd.Type {
	case TypeTrain:
		value := int8(frame[offsetPayload])
		switch value {
		case SelfDriveEnable:
			cmd.SelfDrive = true
			cmd.SelfDriveOn = true
		case SelfDriveDisable:
			cmd.SelfDrive = true
		default:
			if value < -MaxPower || value > MaxPower {
				return Command{}, fmt.Errorf("%w: train value %d", ErrInvalidFrame, value)
			}
			cmd.Power = value
		}
		return cmd, nil

	case TypeSwitch:
		if len(frame) < switchFrameLen {
			return Command{}, fmt.Errorf("%w: switch frame %d bytes, need %d", ErrInvalidFrame, len(frame), switchFrameLen)
		}
		value := int16(binary.LittleEndian.Uint16(frame[offsetPayload:]))
		cmd.SwitchNumber = int(value) / switchNumberMultiplier
		cmd.Position = int(value) % switchNumberMultiplier
		if cmd.SwitchNumber < MinSwitchNumber || cmd.SwitchNumber > MaxSwitchNumber {
			return Command{}, fmt.Errorf("%w: switch number %d", ErrInvalidFrame, cmd.SwitchNumber)
		}
		if cmd.Position != PositionStraight && cmd.Position != PositionDiverging {
			return Command{}, fmt.Errorf("%w: position %d", ErrInvalidFrame, cmd.Position)
		}
		return cmd, nil

	default:
		return Command{}, fmt.Errorf("%w: unknown command type 0x%02X", ErrInvalidFrame, cmd.Type)
	}
}

// DecodeTrainStatus parses the manufacturer data of a train status
// advertisement.
//
// Hubs broadcast status on a separate channel from the one they take
// commands on; the command channel is embedded in the payload. The data
// layout (as delivered by the scan callback, after the manufacturer id)
// is:
//
//	Byte 2:     Command channel the hub listens on
//	Byte n-2:   Status byte; running when > 0
//	Byte n-1:   Signed power the hub is applying
//
// Returns:
//   - TrainStatus: Decoded status
//   - error: ErrInvalidFrame if the data is too short
func DecodeTrainStatus(data []byte) (TrainStatus, error) {
	if len(data) < minStatusLength {
		return TrainStatus{}, fmt.Errorf("%w: status %d bytes, need at least %d", ErrInvalidFrame, len(data), minStatusLength)
	}
	return TrainStatus{
		Channel: data[offsetStatusChannel],
		Running: data[len(data)-2] > 0,
		Power:   int8(data[len(data)-1]),
	}, nil
}

// DecodeSwitchStatus parses the manufacturer data of a switch status
// advertisement.
//
// The data layout is:
//
//	Byte 2:     Command channel the hub listens on
//	Byte n-2:   Position nibble; bit set = diverging
//	Byte n-1:   Port-connection nibble; bit set = motor attached
//
// Port A occupies the high bit of each nibble (0b1000) down to port D
// at the low bit (0b0001).
//
// Returns:
//   - SwitchStatus: Decoded status
//   - error: ErrInvalidFrame if the data is too short
func DecodeSwitchStatus(data []byte) (SwitchStatus, error) {
	if len(data) < minStatusLength {
		return SwitchStatus{}, fmt.Errorf("%w: status %d bytes, need at least %d", ErrInvalidFrame, len(data), minStatusLength)
	}
	return SwitchStatus{
		Channel:   data[offsetStatusChannel],
		Positions: data[len(data)-2] & 0x0F,
		Connected: data[len(data)-1] & 0x0F,
	}, nil
}
