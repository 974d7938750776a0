package gateway

import (
	"errors"
	"fmt"
)

// TransformDevice maps a device payload to a Device.
func TransformDevice(p RawPayload) (Device, error) {
	var d Device

	id, ok, err := p.Int(ResID)
	if err = required(ok, err, ResID); err != nil {
		return Device{}, transformError("device", err)
	}
	d.ID = id

	if d.Name, _, err = p.String(ResName); err != nil {
		return Device{}, transformError("device", err)
	}

	// 3/1 is numeric on some firmware and a product string on others.
	typ, ok, err := p.Lookup(ResDeviceInfo, ResDeviceModel)
	if err != nil {
		return Device{}, transformError("device", err)
	}
	if ok {
		switch v := typ.(type) {
		case string:
			d.Model = v
		default:
			n, err := asInt(v)
			if err != nil {
				return Device{}, transformError("device", shapeError([]string{ResDeviceInfo, ResDeviceModel}, "integer or string", v))
			}
			d.Type = n
		}
	}

	if d.On, _, err = p.Bool(ResLightControl, "0", ResOnOff); err != nil {
		return Device{}, transformError("device", err)
	}

	colour, ok, err := p.String(ResLightControl, "0", ResColor)
	if err != nil {
		return Device{}, transformError("device", err)
	}
	if ok {
		d.Color = &colour
	}

	brightness, ok, err := p.Int(ResLightControl, "0", ResBrightness)
	if err != nil {
		return Device{}, transformError("device", err)
	}
	if ok {
		d.Brightness = &brightness
	}

	return d, nil
}

// TransformGroup maps a group payload to a Group.
func TransformGroup(p RawPayload) (Group, error) {
	var g Group

	id, ok, err := p.Int(ResID)
	if err = required(ok, err, ResID); err != nil {
		return Group{}, transformError("group", err)
	}
	g.ID = id

	if g.Name, _, err = p.String(ResName); err != nil {
		return Group{}, transformError("group", err)
	}

	members, ok, err := p.Ints(ResGroupMembers, ResMemberDevices, ResID)
	if err != nil {
		return Group{}, transformError("group", err)
	}
	if !ok {
		members = []int{}
	}
	g.Devices = members

	if g.On, _, err = p.Bool(ResOnOff); err != nil {
		return Group{}, transformError("group", err)
	}

	brightness, ok, err := p.Int(ResBrightness)
	if err != nil {
		return Group{}, transformError("group", err)
	}
	if ok {
		g.Brightness = &brightness
	}

	return g, nil
}

// TransformIdentity maps a registration response to an Identity for username.
func TransformIdentity(p RawPayload, username string) (Identity, error) {
	sid, ok, err := p.String(ResSecurityID)
	if err = required(ok, err, ResSecurityID); err != nil {
		return Identity{}, transformError("identity", err)
	}
	return Identity{Username: username, SecurityID: sid}, nil
}

// TransformIDs maps a collection listing (a JSON array of ids) to ids.
func TransformIDs(p RawPayload) ([]int, error) {
	ids, ok, err := p.Ints()
	if err = required(ok, err, "ids"); err != nil {
		return nil, transformError("id list", err)
	}
	return ids, nil
}

func required(ok bool, err error, key string) error {
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrDataTransform, key)
	}
	return nil
}

// transformError guarantees the ErrDataTransform kind on every failure.
func transformError(entity string, err error) error {
	if errors.Is(err, ErrDataTransform) {
		return fmt.Errorf("%s: %w", entity, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrDataTransform, entity, err)
}
