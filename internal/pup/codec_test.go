package pup

import (
	"errors"
	"testing"
)

func TestEncodeTrainPower_RoundTrip(t *testing.T) {
	for power := -100; power <= 100; power++ {
		frame, err := EncodeTrainPower(7, power)
		if err != nil {
			t.Fatalf("EncodeTrainPower(7, %d) unexpected error: %v", power, err)
		}

		cmd, err := DecodeCommandFrame(frame)
		if err != nil {
			t.Fatalf("DecodeCommandFrame(%d) unexpected error: %v", power, err)
		}
		if cmd.Type != TypeTrain {
			t.Fatalf("decoded type = 0x%02X, want 0x%02X", cmd.Type, TypeTrain)
		}
		if cmd.Channel != 7 {
			t.Fatalf("decoded channel = %d, want 7", cmd.Channel)
		}
		if cmd.SelfDrive {
			t.Fatalf("power %d decoded as self-drive", power)
		}
		if int(cmd.Power) != power {
			t.Fatalf("decoded power = %d, want %d", cmd.Power, power)
		}
	}
}

func TestEncodeTrainPower_FrameLayout(t *testing.T) {
	frame, err := EncodeTrainPower(3, -50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{0x08, 0xFF, 0x97, 0x03, 0x03, 0x00, 0x61, 0xCE}
	if len(frame) != len(want) {
		t.Fatalf("frame length = %d, want %d", len(frame), len(want))
	}
	for i := range want {
		if frame[i] != want[i] {
			t.Errorf("frame[%d] = 0x%02X, want 0x%02X", i, frame[i], want[i])
		}
	}
}

func TestEncodeTrainPower_OutOfRange(t *testing.T) {
	for _, power := range []int{-101, 101, 102, 127, 200} {
		_, err := EncodeTrainPower(1, power)
		if !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("EncodeTrainPower(1, %d) error = %v, want ErrInvalidCommand", power, err)
		}
	}
}

func TestEncodeSelfDrive(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		wantOn  bool
	}{
		{name: "enable", enabled: true, wantOn: true},
		{name: "disable", enabled: false, wantOn: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := EncodeSelfDrive(5, tt.enabled)

			cmd, err := DecodeCommandFrame(frame)
			if err != nil {
				t.Fatalf("DecodeCommandFrame() unexpected error: %v", err)
			}
			if !cmd.SelfDrive {
				t.Fatal("expected self-drive command, got power command")
			}
			if cmd.SelfDriveOn != tt.wantOn {
				t.Errorf("SelfDriveOn = %v, want %v", cmd.SelfDriveOn, tt.wantOn)
			}
			if cmd.Channel != 5 {
				t.Errorf("channel = %d, want 5", cmd.Channel)
			}
		})
	}
}

func TestEncodeSwitchCommand_RoundTrip(t *testing.T) {
	for n := MinSwitchNumber; n <= MaxSwitchNumber; n++ {
		for _, pos := range []int{PositionStraight, PositionDiverging} {
			frame, err := EncodeSwitchCommand(2, n, pos)
			if err != nil {
				t.Fatalf("EncodeSwitchCommand(2, %d, %d) unexpected error: %v", n, pos, err)
			}

			cmd, err := DecodeCommandFrame(frame)
			if err != nil {
				t.Fatalf("DecodeCommandFrame(%d, %d) unexpected error: %v", n, pos, err)
			}
			if cmd.Type != TypeSwitch {
				t.Fatalf("decoded type = 0x%02X, want 0x%02X", cmd.Type, TypeSwitch)
			}
			if cmd.SwitchNumber != n || cmd.Position != pos {
				t.Fatalf("decoded (%d, %d), want (%d, %d)", cmd.SwitchNumber, cmd.Position, n, pos)
			}
		}
	}
}

func TestEncodeSwitchCommand_LittleEndianPayload(t *testing.T) {
	// Switch 2 (port B) diverging: 2*1000 + 1 = 2001 = 0x07D1.
	frame, err := EncodeSwitchCommand(1, 2, PositionDiverging)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(frame) != 9 {
		t.Fatalf("frame length = %d, want 9", len(frame))
	}
	if frame[0] != 0x08 {
		t.Errorf("length byte = 0x%02X, want fixed 0x08", frame[0])
	}
	if frame[7] != 0xD1 || frame[8] != 0x07 {
		t.Errorf("payload = [0x%02X, 0x%02X], want [0xD1, 0x07]", frame[7], frame[8])
	}
}

func TestEncodeSwitchCommand_OutOfRange(t *testing.T) {
	tests := []struct {
		name         string
		switchNumber int
		position     int
	}{
		{name: "switch zero", switchNumber: 0, position: 0},
		{name: "switch five", switchNumber: 5, position: 0},
		{name: "negative switch", switchNumber: -1, position: 1},
		{name: "position two", switchNumber: 1, position: 2},
		{name: "negative position", switchNumber: 1, position: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeSwitchCommand(1, tt.switchNumber, tt.position)
			if !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("error = %v, want ErrInvalidCommand", err)
			}
		})
	}
}

func TestDecodeCommandFrame_Rejections(t *testing.T) {
	valid, _ := EncodeTrainPower(1, 10)

	foreign := make([]byte, len(valid))
	copy(foreign, valid)
	foreign[2], foreign[3] = 0x4C, 0x00 // different manufacturer

	badType := make([]byte, len(valid))
	copy(badType, valid)
	badType[6] = 0x7F

	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "empty", frame: nil},
		{name: "short", frame: valid[:5]},
		{name: "foreign manufacturer", frame: foreign},
		{name: "unknown type", frame: badType},
		{name: "truncated switch", frame: []byte{0x08, 0xFF, 0x97, 0x03, 0x01, 0x00, 0x62, 0xD1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommandFrame(tt.frame)
			if !errors.Is(err, ErrInvalidFrame) {
				t.Errorf("error = %v, want ErrInvalidFrame", err)
			}
		})
	}
}

func TestManufacturerPayload(t *testing.T) {
	frame, _ := EncodeTrainPower(9, 42)

	payload, err := ManufacturerPayload(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{0x09, 0x00, 0x61, 0x2A}
	if len(payload) != len(want) {
		t.Fatalf("payload length = %d, want %d", len(payload), len(want))
	}
	for i := range want {
		if payload[i] != want[i] {
			t.Errorf("payload[%d] = 0x%02X, want 0x%02X", i, payload[i], want[i])
		}
	}
}

func TestDecodeTrainStatus(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		wantChannel byte
		wantRunning bool
		wantPower   int8
	}{
		{
			// The hub broadcasts on status channel 12 but listens on 21;
			// the listening channel at data[2] is the hub's identity.
			name:        "channel read from payload, not broadcast channel",
			data:        []byte{0x0C, 0x61, 0x15, 0x01, 0x32},
			wantChannel: 0x15,
			wantRunning: true,
			wantPower:   50,
		},
		{
			name:        "running backward",
			data:        []byte{0x0C, 0x00, 0x15, 0x02, 0xCE},
			wantChannel: 0x15,
			wantRunning: true,
			wantPower:   -50,
		},
		{
			name:        "stopped",
			data:        []byte{0x0C, 0x00, 0x16, 0x00, 0x00},
			wantChannel: 0x16,
			wantRunning: false,
			wantPower:   0,
		},
		{
			name:        "longer payload uses trailing bytes",
			data:        []byte{0x0C, 0x00, 0x17, 0xAA, 0xBB, 0x01, 0x64},
			wantChannel: 0x17,
			wantRunning: true,
			wantPower:   100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := DecodeTrainStatus(tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if st.Channel != tt.wantChannel {
				t.Errorf("channel = %d, want %d", st.Channel, tt.wantChannel)
			}
			if st.Running != tt.wantRunning {
				t.Errorf("running = %v, want %v", st.Running, tt.wantRunning)
			}
			if st.Power != tt.wantPower {
				t.Errorf("power = %d, want %d", st.Power, tt.wantPower)
			}
		})
	}
}

func TestDecodeTrainStatus_TooShort(t *testing.T) {
	// Four bytes would alias the channel byte with the status byte.
	if _, err := DecodeTrainStatus([]byte{0x01, 0x02, 0x03, 0x04}); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("error = %v, want ErrInvalidFrame", err)
	}
}

func TestDecodeSwitchStatus_BitMapping(t *testing.T) {
	// Positions 0x05 = 0b0101: B and D diverging.
	// Connected 0x03 = 0b0011: C and D attached.
	st, err := DecodeSwitchStatus([]byte{0x0B, 0x00, 0x01, 0x05, 0x03})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if st.Channel != 1 {
		t.Errorf("channel = %d, want 1", st.Channel)
	}

	wantDiverging := map[int]bool{1: false, 2: true, 3: false, 4: true}
	for n, want := range wantDiverging {
		if got := st.PortDiverging(n); got != want {
			t.Errorf("PortDiverging(%d) = %v, want %v", n, got, want)
		}
	}

	wantConnected := map[int]bool{1: false, 2: false, 3: true, 4: true}
	for n, want := range wantConnected {
		if got := st.PortConnected(n); got != want {
			t.Errorf("PortConnected(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestDecodeSwitchStatus_AllPortsHighBitIsA(t *testing.T) {
	// 0b1000 is port A (switch 1) alone.
	st, err := DecodeSwitchStatus([]byte{0x0B, 0x00, 0x02, 0x08, 0x08})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.PortDiverging(1) {
		t.Error("expected port A diverging")
	}
	for n := 2; n <= 4; n++ {
		if st.PortDiverging(n) {
			t.Errorf("port %d should be straight", n)
		}
	}
	if !st.PortConnected(1) || st.PortConnected(4) {
		t.Error("expected only port A connected")
	}
}

func TestSwitchStatus_OutOfRangePorts(t *testing.T) {
	st := SwitchStatus{Positions: 0x0F, Connected: 0x0F}
	for _, n := range []int{0, 5, -1} {
		if st.PortDiverging(n) {
			t.Errorf("PortDiverging(%d) should be false", n)
		}
		if st.PortConnected(n) {
			t.Errorf("PortConnected(%d) should be false", n)
		}
	}
}
