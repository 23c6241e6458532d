package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTrainMetric records one train status sample.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - channel: Train broadcast channel
//   - speedPercent: Signed speed the hub reports
//   - running: Whether the motor is engaged
//   - rssi: Signal strength of the advertisement
func (c *Client) WriteTrainMetric(channel byte, speedPercent int8, running bool, rssi int16) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"train_status",
		map[string]string{
			"channel": channelTag(channel),
		},
		map[string]interface{}{
			"speed_percent": int(speedPercent),
			"running":       running,
			"rssi":          int(rssi),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSwitchMetric records one switch status sample.
//
// Parameters:
//   - channel: Switch broadcast channel
//   - port: Port letter the sample refers to
//   - diverging: Whether the point is set diverging
//   - rssi: Signal strength of the advertisement
func (c *Client) WriteSwitchMetric(channel byte, port string, diverging bool, rssi int16) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"switch_status",
		map[string]string{
			"channel": channelTag(channel),
			"port":    port,
		},
		map[string]interface{}{
			"diverging": diverging,
			"rssi":      int(rssi),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteReliabilityMetric records the delivery counters for one switch port.
//
// Attempts and successes are the monotonic totals; the success rate is
// derived here for dashboard convenience.
func (c *Client) WriteReliabilityMetric(channel byte, port string, attempts, successes uint64) {
	if !c.IsConnected() {
		return
	}

	rate := 0.0
	if attempts > 0 {
		rate = float64(successes) / float64(attempts) * 100
	}

	point := write.NewPoint(
		"switch_reliability",
		map[string]string{
			"channel": channelTag(channel),
			"port":    port,
		},
		map[string]interface{}{
			"attempts":     int64(attempts),
			"successes":    int64(successes),
			"success_rate": rate,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// channelTag formats a channel number for use as a tag value.
func channelTag(channel byte) string {
	return strconv.Itoa(int(channel))
}
