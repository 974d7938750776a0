package tradfri

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
)

// Transport executes gateway requests. *gateway.Executor satisfies it.
type Transport interface {
	Execute(ctx context.Context, req gateway.Request, parse bool) (gateway.RawPayload, error)
}

// Client is the high-level API over one gateway.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Concurrent calls are
//     serialised by the transport's queue, not by the Client.
type Client struct {
	transport Transport
	encoder   atomic.Pointer[gateway.Encoder]
}

// New creates a Client that builds requests with enc and runs them on transport.
func New(transport Transport, enc *gateway.Encoder) *Client {
	c := &Client{transport: transport}
	c.encoder.Store(enc)
	return c
}

func (c *Client) enc() *gateway.Encoder {
	return c.encoder.Load()
}

// Register asks the gateway to issue a PSK for identity. The session
// credentials are not changed; call SetSession with the result.
func (c *Client) Register(ctx context.Context, identity string) (gateway.Identity, error) {
	p, err := c.transport.Execute(ctx, c.enc().Register(identity), true)
	if err != nil {
		return gateway.Identity{}, fmt.Errorf("registering %q: %w", identity, err)
	}
	id, err := gateway.TransformIdentity(p, identity)
	if err != nil {
		return gateway.Identity{}, fmt.Errorf("registering %q: %w", identity, err)
	}
	return id, nil
}

// SetPresharedKey replaces the session key, keeping the session identity.
func (c *Client) SetPresharedKey(key string) {
	for {
		old := c.encoder.Load()
		creds := old.Session()
		creds.Secret = key
		if c.encoder.CompareAndSwap(old, old.WithSession(creds)) {
			return
		}
	}
}

// SetSession switches to a registered identity.
func (c *Client) SetSession(id gateway.Identity) {
	for {
		old := c.encoder.Load()
		next := old.WithSession(gateway.Credentials{Identity: id.Username, Secret: id.SecurityID})
		if c.encoder.CompareAndSwap(old, next) {
			return
		}
	}
}

// Identity returns the identity the client currently authenticates as.
func (c *Client) Identity() string {
	return c.enc().Session().Identity
}

// DeviceIDs lists the ids of every device paired with the gateway.
func (c *Client) DeviceIDs(ctx context.Context) ([]int, error) {
	return c.ids(ctx, gateway.KindDevice)
}

// GroupIDs lists the ids of every group.
func (c *Client) GroupIDs(ctx context.Context) ([]int, error) {
	return c.ids(ctx, gateway.KindGroup)
}

func (c *Client) ids(ctx context.Context, kind gateway.Kind) ([]int, error) {
	p, err := c.transport.Execute(ctx, c.enc().Get(kind, nil), true)
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", kind, err)
	}
	ids, err := gateway.TransformIDs(p)
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", kind, err)
	}
	return ids, nil
}

// Device fetches one device.
func (c *Client) Device(ctx context.Context, id int) (gateway.Device, error) {
	p, err := c.transport.Execute(ctx, c.enc().Get(gateway.KindDevice, &id), true)
	if err != nil {
		return gateway.Device{}, fmt.Errorf("getting device %d: %w", id, err)
	}
	d, err := gateway.TransformDevice(p)
	if err != nil {
		return gateway.Device{}, fmt.Errorf("getting device %d: %w", id, err)
	}
	return d, nil
}

// Group fetches one group.
func (c *Client) Group(ctx context.Context, id int) (gateway.Group, error) {
	p, err := c.transport.Execute(ctx, c.enc().Get(gateway.KindGroup, &id), true)
	if err != nil {
		return gateway.Group{}, fmt.Errorf("getting group %d: %w", id, err)
	}
	g, err := gateway.TransformGroup(p)
	if err != nil {
		return gateway.Group{}, fmt.Errorf("getting group %d: %w", id, err)
	}
	return g, nil
}

// Devices fetches the listed devices, or every device when ids is nil.
// Results are in the order of ids. The first failure cancels the rest.
func (c *Client) Devices(ctx context.Context, ids []int) ([]gateway.Device, error) {
	if ids == nil {
		var err error
		if ids, err = c.DeviceIDs(ctx); err != nil {
			return nil, err
		}
	}
	return fanOut(ctx, ids, c.Device)
}

// Groups fetches every group.
func (c *Client) Groups(ctx context.Context) ([]gateway.Group, error) {
	ids, err := c.GroupIDs(ctx)
	if err != nil {
		return nil, err
	}
	return fanOut(ctx, ids, c.Group)
}

// All fetches every group together with its member devices. Member lists
// are joined by position, so result i always holds group i's devices.
func (c *Client) All(ctx context.Context) ([]gateway.GroupWithDevices, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}

	members := make([][]gateway.Device, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, grp := range groups {
		i, grp := i, grp
		g.Go(func() error {
			devs, err := c.Devices(gctx, grp.Devices)
			if err != nil {
				return fmt.Errorf("group %d members: %w", grp.ID, err)
			}
			members[i] = devs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]gateway.GroupWithDevices, len(groups))
	for i := range groups {
		out[i] = gateway.GroupWithDevices{Group: groups[i], Members: members[i]}
	}
	return out, nil
}

// fanOut runs get for every id concurrently and returns results by index.
func fanOut[T any](ctx context.Context, ids []int, get func(context.Context, int) (T, error)) ([]T, error) {
	out := make([]T, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			v, err := get(gctx, id)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
