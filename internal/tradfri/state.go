package tradfri

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
)

// StateToggle as Properties.State flips the current on/off state.
const StateToggle = "toggle"

// SetState writes props to a device or group.
//
// A State of "toggle" reads the current state and writes the opposite. The
// read and the write are two separate gateway calls and nothing stops the
// state changing in between (a wall switch, another client); the protocol
// has no compare-and-set, so the last writer wins.
func (c *Client) SetState(ctx context.Context, kind gateway.Kind, id int, props gateway.Properties) error {
	if s, ok := props.State.(string); ok && s == StateToggle {
		on, err := c.isOn(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("toggling %s %d: %w", kind, id, err)
		}
		if on {
			props.State = "off"
		} else {
			props.State = "on"
		}
	}

	if _, err := c.transport.Execute(ctx, c.enc().Put(kind, id, props), false); err != nil {
		return fmt.Errorf("setting %s %d: %w", kind, id, err)
	}
	return nil
}

func (c *Client) isOn(ctx context.Context, kind gateway.Kind, id int) (bool, error) {
	if kind == gateway.KindGroup {
		g, err := c.Group(ctx, id)
		return g.On, err
	}
	d, err := c.Device(ctx, id)
	return d.On, err
}

// SetDeviceState writes props to a device.
func (c *Client) SetDeviceState(ctx context.Context, id int, props gateway.Properties) error {
	return c.SetState(ctx, gateway.KindDevice, id, props)
}

// SetGroupState writes props to a group.
func (c *Client) SetGroupState(ctx context.Context, id int, props gateway.Properties) error {
	return c.SetState(ctx, gateway.KindGroup, id, props)
}

// TurnOnDevice switches a device on.
func (c *Client) TurnOnDevice(ctx context.Context, id int) error {
	return c.SetDeviceState(ctx, id, gateway.Properties{State: "on"})
}

// TurnOffDevice switches a device off.
func (c *Client) TurnOffDevice(ctx context.Context, id int) error {
	return c.SetDeviceState(ctx, id, gateway.Properties{State: "off"})
}

// ToggleDevice flips a device, or forces it to *state when state is non-nil.
func (c *Client) ToggleDevice(ctx context.Context, id int, state *bool) error {
	return c.toggle(ctx, gateway.KindDevice, id, state)
}

// TurnOnGroup switches a group on.
func (c *Client) TurnOnGroup(ctx context.Context, id int) error {
	return c.SetGroupState(ctx, id, gateway.Properties{State: "on"})
}

// TurnOffGroup switches a group off.
func (c *Client) TurnOffGroup(ctx context.Context, id int) error {
	return c.SetGroupState(ctx, id, gateway.Properties{State: "off"})
}

// ToggleGroup flips a group, or forces it to *state when state is non-nil.
func (c *Client) ToggleGroup(ctx context.Context, id int, state *bool) error {
	return c.toggle(ctx, gateway.KindGroup, id, state)
}

func (c *Client) toggle(ctx context.Context, kind gateway.Kind, id int, state *bool) error {
	if state != nil {
		return c.SetState(ctx, kind, id, gateway.Properties{State: *state})
	}
	return c.SetState(ctx, kind, id, gateway.Properties{State: StateToggle})
}
