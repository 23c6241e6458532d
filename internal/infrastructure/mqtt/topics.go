package mqtt

import "fmt"

// Topic prefixes for the Railyard MQTT hierarchy.
//
// State topics are retained so late subscribers immediately see the
// current picture of the layout.
const (
	// TopicPrefix is the base for all Railyard topics.
	TopicPrefix = "railyard"

	// TopicPrefixState is the base for retained hub state topics.
	TopicPrefixState = "railyard/state"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "railyard/system"
)

// Topics provides builders for Railyard MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.TrainState(21)
//	// Returns: "railyard/state/train/21"
type Topics struct{}

// TrainState returns the retained state topic for one train channel.
//
// Example: railyard/state/train/21
func (Topics) TrainState(channel byte) string {
	return fmt.Sprintf("%s/train/%d", TopicPrefixState, channel)
}

// SwitchState returns the retained state topic for one switch channel.
//
// Example: railyard/state/switch/1
func (Topics) SwitchState(channel byte) string {
	return fmt.Sprintf("%s/switch/%d", TopicPrefixState, channel)
}

// AllStates returns the wildcard pattern matching every hub state topic.
//
// Example: railyard/state/#
func (Topics) AllStates() string {
	return TopicPrefixState + "/#"
}

// AllTrainStates returns the wildcard pattern for train state topics only.
//
// Example: railyard/state/train/+
func (Topics) AllTrainStates() string {
	return TopicPrefixState + "/train/+"
}

// AllSwitchStates returns the wildcard pattern for switch state topics only.
//
// Example: railyard/state/switch/+
func (Topics) AllSwitchStates() string {
	return TopicPrefixState + "/switch/+"
}

// SystemStatus returns the service availability topic, also used for the
// Last Will and Testament.
//
// Example: railyard/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
