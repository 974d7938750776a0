package bridge

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-tradfri/internal/gateway"
)

func TestAddressRoundtrip(t *testing.T) {
	tests := []struct {
		kind gateway.Kind
		id   int
		want string
	}{
		{gateway.KindDevice, 65537, "device-65537"},
		{gateway.KindGroup, 131073, "group-131073"},
		{gateway.KindDevice, 0, "device-0"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := Address(tt.kind, tt.id)
			if got != tt.want {
				t.Fatalf("Address() = %q, want %q", got, tt.want)
			}
			kind, id, err := ParseAddress(got)
			if err != nil {
				t.Fatalf("ParseAddress() error = %v", err)
			}
			if kind != tt.kind || id != tt.id {
				t.Errorf("ParseAddress() = (%v, %d), want (%v, %d)", kind, id, tt.kind, tt.id)
			}
		})
	}
}

func TestParseAddressInvalid(t *testing.T) {
	for _, addr := range []string{"", "device", "lamp-1", "device-abc", "device--1", "group-"} {
		t.Run(addr, func(t *testing.T) {
			if _, _, err := ParseAddress(addr); !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("ParseAddress(%q) error = %v, want ErrInvalidAddress", addr, err)
			}
		})
	}
}

func TestCommandProperties(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
		check   func(t *testing.T, p gateway.Properties)
	}{
		{
			name:    "on",
			payload: `{"command":"on"}`,
			check: func(t *testing.T, p gateway.Properties) {
				if p.State != "on" {
					t.Errorf("State = %v, want on", p.State)
				}
			},
		},
		{
			name:    "toggle",
			payload: `{"command":"toggle"}`,
			check: func(t *testing.T, p gateway.Properties) {
				if p.State != "toggle" {
					t.Errorf("State = %v, want toggle", p.State)
				}
			},
		},
		{
			name:    "set all",
			payload: `{"command":"set","parameters":{"state":true,"brightness":128,"color":"warm","transition_time":10}}`,
			check: func(t *testing.T, p gateway.Properties) {
				if p.State != true {
					t.Errorf("State = %v, want true", p.State)
				}
				if p.Brightness == nil || *p.Brightness != 128 {
					t.Errorf("Brightness = %v, want 128", p.Brightness)
				}
				if p.Color == nil || *p.Color != "warm" {
					t.Errorf("Color = %v, want warm", p.Color)
				}
				if p.TransitionTime == nil || *p.TransitionTime != 10 {
					t.Errorf("TransitionTime = %v, want 10", p.TransitionTime)
				}
			},
		},
		{name: "unknown command", payload: `{"command":"dim"}`, wantErr: ErrInvalidCommand},
		{name: "set without parameters", payload: `{"command":"set"}`, wantErr: ErrInvalidParameters},
		{name: "brightness too high", payload: `{"command":"set","parameters":{"brightness":255}}`, wantErr: ErrInvalidParameters},
		{name: "fractional brightness", payload: `{"command":"set","parameters":{"brightness":12.5}}`, wantErr: ErrInvalidParameters},
		{name: "color not a string", payload: `{"command":"set","parameters":{"color":3}}`, wantErr: ErrInvalidParameters},
		{name: "unknown parameter", payload: `{"command":"set","parameters":{"hue":3}}`, wantErr: ErrInvalidParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd CommandMessage
			if err := json.Unmarshal([]byte(tt.payload), &cmd); err != nil {
				t.Fatal(err)
			}
			p, err := cmd.Properties()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Properties() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Properties() error = %v", err)
			}
			tt.check(t, p)
		})
	}
}

func TestStateMaps(t *testing.T) {
	b := 200
	c := "f1e0b5"
	d := DeviceState(gateway.Device{ID: 1, On: true, Brightness: &b, Color: &c})
	if d["on"] != true || d["brightness"] != 200 || d["color"] != "f1e0b5" {
		t.Errorf("DeviceState() = %v", d)
	}

	plug := DeviceState(gateway.Device{ID: 2})
	if _, ok := plug["brightness"]; ok {
		t.Error("DeviceState() should omit brightness when the device has none")
	}

	g := GroupState(gateway.Group{ID: 3, Devices: []int{1, 2}})
	if g["on"] != false || len(g["devices"].([]int)) != 2 {
		t.Errorf("GroupState() = %v", g)
	}
}

func TestLWTPayload(t *testing.T) {
	var msg HealthMessage
	if err := json.Unmarshal(LWTPayload("tradfri-test"), &msg); err != nil {
		t.Fatalf("LWT payload is not JSON: %v", err)
	}
	if msg.Status != HealthOffline || msg.Bridge != "tradfri-test" {
		t.Errorf("LWT = %+v", msg)
	}
}
