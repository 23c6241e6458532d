package device

import (
	"errors"
	"testing"
	"time"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		input   string
		want    Port
		wantErr bool
	}{
		{input: "A", want: PortA},
		{input: "d", want: PortD},
		{input: " b ", want: PortB},
		{input: "E", wantErr: true},
		{input: "", wantErr: true},
		{input: "AB", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePort(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPort) {
					t.Errorf("ParsePort(%q) error = %v, want ErrInvalidPort", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePort(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParsePort(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPort_Number(t *testing.T) {
	want := map[Port]int{PortA: 1, PortB: 2, PortC: 3, PortD: 4}
	for port, n := range want {
		if got := port.Number(); got != n {
			t.Errorf("%v.Number() = %d, want %d", port, got, n)
		}
	}
	if got := Port("X").Number(); got != 0 {
		t.Errorf("unknown port Number() = %d, want 0", got)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		input   string
		want    Position
		wantErr bool
	}{
		{input: "0", want: Straight},
		{input: "1", want: Diverging},
		{input: "straight", want: Straight},
		{input: "DIVERGING", want: Diverging},
		{input: "2", wantErr: true},
		{input: "left", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePosition(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPosition) {
					t.Errorf("error = %v, want ErrInvalidPosition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParsePosition(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTrainStatus_Direction(t *testing.T) {
	if got := (TrainStatus{SpeedPercent: 50}).Direction(); got != "forward" {
		t.Errorf("positive speed direction = %q, want forward", got)
	}
	if got := (TrainStatus{SpeedPercent: -1}).Direction(); got != "backward" {
		t.Errorf("negative speed direction = %q, want backward", got)
	}
	if got := (TrainStatus{}).Direction(); got != "forward" {
		t.Errorf("zero speed direction = %q, want forward", got)
	}
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistry()

	hub := r.GetOrCreate(21, KindTrain, "Train 21")
	if hub.Channel != 21 || hub.Kind != KindTrain || hub.Name != "Train 21" {
		t.Errorf("unexpected hub: %+v", hub)
	}

	// Second call returns the existing hub, updating the name only
	// when a non-empty one is supplied.
	again := r.GetOrCreate(21, KindTrain, "")
	if again.Name != "Train 21" {
		t.Errorf("name = %q, want Train 21", again.Name)
	}

	renamed := r.GetOrCreate(21, KindTrain, "Express")
	if renamed.Name != "Express" {
		t.Errorf("name = %q, want Express", renamed.Name)
	}
}

func TestRegistry_Get_Unknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(99); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("error = %v, want ErrUnknownDevice", err)
	}
}

func TestRegistry_RecordTrainStatus_AutoRegisters(t *testing.T) {
	r := NewRegistry()

	hub := r.RecordTrainStatus(5, "Train", -60, TrainStatus{
		Running:      true,
		SpeedPercent: 40,
		Timestamp:    time.Now(),
	})

	if hub.Kind != KindTrain {
		t.Errorf("kind = %v, want train", hub.Kind)
	}
	if hub.Train == nil || hub.Train.SpeedPercent != 40 {
		t.Errorf("train status not recorded: %+v", hub.Train)
	}
	if hub.RSSI != -60 {
		t.Errorf("rssi = %d, want -60", hub.RSSI)
	}
}

func TestRegistry_StatusReplacedWholesale(t *testing.T) {
	r := NewRegistry()

	ts := time.Now()
	r.RecordSwitchStatus(2, "Technic Hub", -50, SwitchStatus{
		Positions:     map[Port]Position{PortA: Diverging, PortB: Diverging},
		PortConnected: map[Port]bool{PortA: true, PortB: true},
		Timestamp:     ts,
	})
	r.RecordSwitchStatus(2, "Technic Hub", -50, SwitchStatus{
		Positions:     map[Port]Position{PortA: Straight},
		PortConnected: map[Port]bool{PortA: true},
		Timestamp:     ts.Add(time.Second),
	})

	hub, err := r.Get(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hub.Switch.Positions) != 1 {
		t.Errorf("positions = %v, want only port A (no merge)", hub.Switch.Positions)
	}
	if pos, ok := hub.Switch.Positions[PortA]; !ok || pos != Straight {
		t.Errorf("port A position = %v, want straight", pos)
	}
}

func TestRegistry_IsLive(t *testing.T) {
	r := NewRegistry()

	if r.IsLive(9, 5*time.Second) {
		t.Error("unknown channel should not be live")
	}

	r.GetOrCreate(9, KindTrain, "Train")
	if r.IsLive(9, 5*time.Second) {
		t.Error("registered but never-seen channel should not be live")
	}

	r.RecordTrainStatus(9, "Train", -50, TrainStatus{Timestamp: time.Now()})
	if !r.IsLive(9, 5*time.Second) {
		t.Error("just-seen channel should be live")
	}

	// Boundary is exclusive: with a zero window nothing is live.
	if r.IsLive(9, 0) {
		t.Error("zero window should never be live")
	}
}

func TestRegistry_IsLive_AgesOut(t *testing.T) {
	r := NewRegistry()
	r.RecordTrainStatus(21, "Train", -50, TrainStatus{
		Timestamp: time.Now().Add(-6 * time.Second),
	})

	if r.IsLive(21, 5*time.Second) {
		t.Error("channel last seen 6s ago should not be live with a 5s window")
	}
	if views := r.ConnectedTrains(5 * time.Second); len(views) != 0 {
		t.Errorf("connected trains = %v, want empty", views)
	}
}

func TestRegistry_MarkActive(t *testing.T) {
	r := NewRegistry()
	r.SetActiveWindow(30 * time.Millisecond)

	if err := r.MarkActive(3); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("error = %v, want ErrUnknownDevice", err)
	}

	r.GetOrCreate(3, KindTrain, "Train")
	if err := r.MarkActive(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.IsActive(3) {
		t.Fatal("expected active immediately after MarkActive")
	}

	// A second MarkActive rearms the timer: the flag clears relative to
	// the last call, not the first.
	time.Sleep(20 * time.Millisecond)
	if err := r.MarkActive(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if !r.IsActive(3) {
		t.Error("active flag cleared relative to the first MarkActive, want the last")
	}

	time.Sleep(30 * time.Millisecond)
	if r.IsActive(3) {
		t.Error("active flag should clear after the window")
	}
}

func TestRegistry_MarkActive_StaleTimerIgnored(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate(3, KindTrain, "Train")

	if err := r.MarkActive(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.MarkActive(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A callback from the first arming that lost the Stop race and was
	// blocked on the lock fires with a stale generation.
	r.clearActive(3, 1)
	if !r.IsActive(3) {
		t.Fatal("stale timer cleared a rearmed active flag")
	}

	r.clearActive(3, 2)
	if r.IsActive(3) {
		t.Fatal("current timer should clear the active flag")
	}
}

func TestRegistry_SetSelfDrive(t *testing.T) {
	r := NewRegistry()

	if err := r.SetSelfDrive(1, true); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("error = %v, want ErrUnknownDevice", err)
	}

	r.GetOrCreate(1, KindSwitch, "Technic Hub")
	if err := r.SetSelfDrive(1, true); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("error = %v, want ErrWrongKind", err)
	}

	r.GetOrCreate(2, KindTrain, "Train")
	if err := r.SetSelfDrive(2, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Recording a status must not clobber the locally tracked flag.
	hub := r.RecordTrainStatus(2, "Train", -40, TrainStatus{Timestamp: time.Now()})
	if !hub.SelfDrive {
		t.Error("self-drive flag lost after status update")
	}

	views := r.ConnectedTrains(5 * time.Second)
	if v, ok := views[2]; !ok || !v.SelfDrive {
		t.Errorf("connected view = %+v, want self_drive true", v)
	}
}

func TestRegistry_ConnectedViews(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	r.RecordTrainStatus(21, "Train", -55, TrainStatus{
		Running:      true,
		SpeedPercent: -30,
		Timestamp:    now,
	})
	r.RecordSwitchStatus(1, "Technic Hub", -62, SwitchStatus{
		Positions:     map[Port]Position{PortB: Diverging, PortD: Diverging},
		PortConnected: map[Port]bool{PortC: true, PortD: true},
		Timestamp:     now,
	})

	trains := r.ConnectedTrains(5 * time.Second)
	if len(trains) != 1 {
		t.Fatalf("trains = %v, want one entry", trains)
	}
	tv := trains[21]
	if !tv.Running || tv.SpeedPercent != -30 || tv.Direction != "backward" {
		t.Errorf("train view = %+v", tv)
	}
	if tv.RSSI != -55 {
		t.Errorf("train rssi = %d, want -55", tv.RSSI)
	}

	switches := r.ConnectedSwitches(5 * time.Second)
	if len(switches) != 1 {
		t.Fatalf("switches = %v, want one entry", switches)
	}
	sv := switches[1]
	if sv.Positions[PortB] != "diverging" {
		t.Errorf("port B = %q, want diverging", sv.Positions[PortB])
	}
	if !sv.Connected[PortD] {
		t.Error("port D should be connected")
	}

	// Kinds never leak across views.
	if _, ok := trains[1]; ok {
		t.Error("switch channel listed among trains")
	}
}

func TestRegistry_SwitchPosition(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.SwitchPosition(1, PortA); ok {
		t.Error("unknown channel should report no position")
	}

	r.RecordSwitchStatus(1, "Technic Hub", -50, SwitchStatus{
		Positions: map[Port]Position{PortA: Diverging},
		Timestamp: time.Now(),
	})

	pos, ok := r.SwitchPosition(1, PortA)
	if !ok || pos != Diverging {
		t.Errorf("SwitchPosition = (%v, %v), want (diverging, true)", pos, ok)
	}
	if _, ok := r.SwitchPosition(1, PortB); ok {
		t.Error("unreported port should report no position")
	}
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	r.RecordSwitchStatus(4, "Technic Hub", -50, SwitchStatus{
		Positions: map[Port]Position{PortA: Straight},
		Timestamp: time.Now(),
	})

	hub, _ := r.Get(4)
	hub.Switch.Positions[PortA] = Diverging

	again, _ := r.Get(4)
	if again.Switch.Positions[PortA] != Straight {
		t.Error("mutating a snapshot leaked into the registry")
	}
}
