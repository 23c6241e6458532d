// Package config provides configuration loading for Railyard Core.
//
// Configuration is loaded in three layers, each overriding the last:
//
//  1. Hardcoded defaults (Default)
//  2. YAML file values
//  3. RAILYARD_* environment variables
//
// The environment layer exists so secrets (API keys, broker credentials,
// InfluxDB tokens) never have to live in the YAML file.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//
// All duration fields use Go duration syntax in YAML ("500ms", "5s").
package config
