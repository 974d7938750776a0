// Package config loads the bridge configuration: defaults, then the YAML
// file named by TRADFRI_CONFIG, then TRADFRI_* environment overrides, then
// validation.
//
// Secrets (gateway PSK and security code, broker password, InfluxDB token)
// are meant to come from the environment so the YAML file can be shared.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	timeout := cfg.GetGatewayTimeout()
package config
