package device

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies a hub by what it drives.
type Kind string

const (
	KindTrain  Kind = "train"
	KindSwitch Kind = "switch"
)

// Port identifies a motor port on a switch hub.
type Port string

const (
	PortA Port = "A"
	PortB Port = "B"
	PortC Port = "C"
	PortD Port = "D"
)

// AllPorts lists the switch ports in wire order.
var AllPorts = []Port{PortA, PortB, PortC, PortD}

// ParsePort converts a string to a Port, case-insensitively.
//
// Returns:
//   - Port: The parsed port
//   - error: ErrInvalidPort if the string is not A, B, C or D
func ParsePort(s string) (Port, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return PortA, nil
	case "B":
		return PortB, nil
	case "C":
		return PortC, nil
	case "D":
		return PortD, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPort, s)
	}
}

// Number returns the 1-based switch number used on the wire (A=1 .. D=4).
// Unknown ports return 0.
func (p Port) Number() int {
	switch p {
	case PortA:
		return 1
	case PortB:
		return 2
	case PortC:
		return 3
	case PortD:
		return 4
	default:
		return 0
	}
}

// Position is a switch point position.
type Position int

const (
	Straight  Position = 0
	Diverging Position = 1
)

// String returns the position name in lowercase.
func (p Position) String() string {
	if p == Diverging {
		return "diverging"
	}
	return "straight"
}

// ParsePosition accepts either numeric ("0"/"1") or named
// ("straight"/"diverging") position strings.
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "straight":
		return Straight, nil
	case "1", "diverging":
		return Diverging, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
	}
}

// TrainStatus is the most recent decoded status of a train hub.
type TrainStatus struct {
	Running      bool
	SpeedPercent int8
	Timestamp    time.Time
}

// Direction derives the travel direction from the speed sign.
func (s TrainStatus) Direction() string {
	if s.SpeedPercent < 0 {
		return "backward"
	}
	return "forward"
}

// SwitchStatus is the most recent decoded status of a switch hub.
type SwitchStatus struct {
	Positions     map[Port]Position
	PortConnected map[Port]bool
	RawStatusByte byte
	Timestamp     time.Time
}

// Hub is a snapshot of one registered hub. Returned by registry reads;
// mutating it never affects the registry.
type Hub struct {
	Channel   byte
	Kind      Kind
	Name      string
	RSSI      int16
	LastSeen  time.Time
	Active    bool
	SelfDrive bool
	Train     *TrainStatus
	Switch    *SwitchStatus
}

// TrainView is the external representation of a connected train,
// shaped for the connected-device listings.
type TrainView struct {
	Channel      byte    `json:"channel"`
	Name         string  `json:"name"`
	RSSI         int16   `json:"rssi"`
	Running      bool    `json:"running"`
	SpeedPercent int8    `json:"speed_percent"`
	Direction    string  `json:"direction"`
	SelfDrive    bool    `json:"self_drive"`
	Active       bool    `json:"active"`
	AgeSeconds   float64 `json:"age_seconds"`
}

// SwitchView is the external representation of a connected switch hub.
type SwitchView struct {
	Channel    byte            `json:"channel"`
	Name       string          `json:"name"`
	RSSI       int16           `json:"rssi"`
	Positions  map[Port]string `json:"positions"`
	Connected  map[Port]bool   `json:"connected"`
	Active     bool            `json:"active"`
	AgeSeconds float64         `json:"age_seconds"`
}

// NewTrainView shapes a hub snapshot like the connected-trains listing,
// so state fan-out and the HTTP API speak the same dialect.
func NewTrainView(hub Hub) TrainView {
	v := TrainView{
		Channel:   hub.Channel,
		Name:      hub.Name,
		RSSI:      hub.RSSI,
		SelfDrive: hub.SelfDrive,
		Active:    hub.Active,
	}
	if hub.Train != nil {
		v.Running = hub.Train.Running
		v.SpeedPercent = hub.Train.SpeedPercent
		v.Direction = hub.Train.Direction()
		v.AgeSeconds = time.Since(hub.Train.Timestamp).Seconds()
	}
	return v
}

// NewSwitchView shapes a hub snapshot like the connected-switches listing.
func NewSwitchView(hub Hub) SwitchView {
	v := SwitchView{
		Channel:   hub.Channel,
		Name:      hub.Name,
		RSSI:      hub.RSSI,
		Active:    hub.Active,
		Positions: make(map[Port]string),
		Connected: make(map[Port]bool),
	}
	if hub.Switch != nil {
		for port, pos := range hub.Switch.Positions {
			v.Positions[port] = pos.String()
		}
		for port, connected := range hub.Switch.PortConnected {
			v.Connected[port] = connected
		}
		v.AgeSeconds = time.Since(hub.Switch.Timestamp).Seconds()
	}
	return v
}
