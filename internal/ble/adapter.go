package ble

import (
	"fmt"
	"time"

	tinybluetooth "tinygo.org/x/bluetooth"
)

// MfgData is one manufacturer-data element from an advertisement.
type MfgData struct {
	CompanyID uint16
	Data      []byte
}

// Advertisement is a received BLE advertisement, decoupled from the
// underlying stack so consumers and tests never import it.
type Advertisement struct {
	LocalName        string
	Address          string
	RSSI             int16
	ManufacturerData []MfgData
}

// Adapter abstracts the physical BLE adapter. The production
// implementation wraps tinygo.org/x/bluetooth; tests use a fake.
//
// Scan blocks until StopScan is called or the session fails.
type Adapter interface {
	Enable() error
	Scan(callback func(Advertisement)) error
	StopScan() error

	// ConfigureAdvertisement loads a manufacturer payload and advertising
	// interval; StartAdvertisement/StopAdvertisement toggle the beacon.
	ConfigureAdvertisement(companyID uint16, data []byte, interval time.Duration) error
	StartAdvertisement() error
	StopAdvertisement() error
}

// tinygoAdapter is the production Adapter backed by the default system
// adapter (BlueZ over D-Bus on Linux).
type tinygoAdapter struct {
	adapter *tinybluetooth.Adapter
}

// NewDefaultAdapter enables and wraps the system's default BLE adapter.
//
// Returns:
//   - Adapter: Ready-to-use adapter
//   - error: ErrAdapterUnavailable if the adapter is missing or cannot
//     be enabled
func NewDefaultAdapter() (Adapter, error) {
	adapter := tinybluetooth.DefaultAdapter
	if adapter == nil {
		return nil, ErrAdapterUnavailable
	}
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}
	return &tinygoAdapter{adapter: adapter}, nil
}

func (a *tinygoAdapter) Enable() error {
	return a.adapter.Enable()
}

func (a *tinygoAdapter) Scan(callback func(Advertisement)) error {
	return a.adapter.Scan(func(_ *tinybluetooth.Adapter, result tinybluetooth.ScanResult) {
		adv := Advertisement{
			LocalName: result.LocalName(),
			Address:   result.Address.String(),
			RSSI:      result.RSSI,
		}
		for _, element := range result.ManufacturerData() {
			adv.ManufacturerData = append(adv.ManufacturerData, MfgData{
				CompanyID: element.CompanyID,
				Data:      element.Data,
			})
		}
		callback(adv)
	})
}

func (a *tinygoAdapter) StopScan() error {
	return a.adapter.StopScan()
}

func (a *tinygoAdapter) ConfigureAdvertisement(companyID uint16, data []byte, interval time.Duration) error {
	adv := a.adapter.DefaultAdvertisement()
	return adv.Configure(tinybluetooth.AdvertisementOptions{
		Interval: tinybluetooth.NewDuration(interval),
		ManufacturerData: []tinybluetooth.ManufacturerDataElement{
			{CompanyID: companyID, Data: data},
		},
	})
}

func (a *tinygoAdapter) StartAdvertisement() error {
	return a.adapter.DefaultAdvertisement().Start()
}

func (a *tinygoAdapter) StopAdvertisement() error {
	return a.adapter.DefaultAdvertisement().Stop()
}
