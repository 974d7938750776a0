package gateway

import (
	"errors"
	"reflect"
	"testing"
)

func mustParse(t *testing.T, s string) RawPayload {
	t.Helper()
	p, err := ParsePayload([]byte(s))
	if err != nil {
		t.Fatalf("ParsePayload(%s): %v", s, err)
	}
	return p
}

func TestTransformDevice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Device
	}{
		{
			name: "light with brightness",
			in:   `{"9003":5,"9001":"Lamp","3311":[{"5850":1,"5851":80}]}`,
			want: Device{ID: 5, Name: "Lamp", On: true, Brightness: intPtr(80)},
		},
		{
			name: "colour bulb",
			in:   `{"9003":65537,"9001":"Hall","3":{"0":"IKEA of Sweden","1":"TRADFRI bulb E27 CWS opal 600lm"},"3311":[{"5850":0,"5706":"f1e0b5","5851":254}]}`,
			want: Device{ID: 65537, Name: "Hall", Model: "TRADFRI bulb E27 CWS opal 600lm", Color: strPtr("f1e0b5"), Brightness: intPtr(254)},
		},
		{
			name: "numeric type",
			in:   `{"9003":65538,"9001":"Plug","3":{"1":2}}`,
			want: Device{ID: 65538, Name: "Plug", Type: 2},
		},
		{
			name: "remote without light control",
			in:   `{"9003":65536,"9001":"Remote"}`,
			want: Device{ID: 65536, Name: "Remote"},
		},
		{
			name: "boolean on flag",
			in:   `{"9003":1,"3311":[{"5850":true}]}`,
			want: Device{ID: 1, On: true},
		},
		{
			name: "empty light control array",
			in:   `{"9003":1,"3311":[]}`,
			want: Device{ID: 1},
		},
		{
			name: "null brightness is absent",
			in:   `{"9003":1,"3311":[{"5851":null}]}`,
			want: Device{ID: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransformDevice(mustParse(t, tt.in))
			if err != nil {
				t.Fatalf("TransformDevice() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TransformDevice() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTransformDevice_OffAndAbsentAreDistinct(t *testing.T) {
	withZero, err := TransformDevice(mustParse(t, `{"9003":1,"3311":[{"5851":0}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if withZero.Brightness == nil || *withZero.Brightness != 0 {
		t.Errorf("brightness 0 must be present, got %v", withZero.Brightness)
	}

	absent, err := TransformDevice(mustParse(t, `{"9003":1,"3311":[{}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if absent.Brightness != nil || absent.Color != nil {
		t.Errorf("absent fields must be nil, got %+v", absent)
	}
}

func TestTransformDevice_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing id", `{"9001":"Lamp"}`},
		{"string id", `{"9003":"5"}`},
		{"fractional id", `{"9003":5.5}`},
		{"id past int64", `{"9003":9223372036854775808}`},
		{"id past int64 as float", `{"9003":9.3e18}`},
		{"numeric name", `{"9003":5,"9001":42}`},
		{"light control not array", `{"9003":5,"3311":{"5850":1}}`},
		{"on flag is string", `{"9003":5,"3311":[{"5850":"on"}]}`},
		{"brightness is string", `{"9003":5,"3311":[{"5851":"80"}]}`},
		{"colour is number", `{"9003":5,"3311":[{"5706":123456}]}`},
		{"device info is scalar", `{"9003":5,"3":7}`},
		{"type is object", `{"9003":5,"3":{"1":{}}}`},
		{"payload is array", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TransformDevice(mustParse(t, tt.in))
			if !errors.Is(err, ErrDataTransform) {
				t.Fatalf("TransformDevice() error = %v, want ErrDataTransform", err)
			}
			if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrConnectivity) {
				t.Error("transform errors must stay distinct from decode errors")
			}
		})
	}
}

func TestTransformGroup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Group
	}{
		{
			name: "kitchen",
			in:   `{"9003":2,"9001":"Kitchen","9018":{"15002":{"9003":[1,2,3]}},"5850":0}`,
			want: Group{ID: 2, Name: "Kitchen", Devices: []int{1, 2, 3}, On: false},
		},
		{
			name: "on with brightness",
			in:   `{"9003":131073,"9001":"Living room","9018":{"15002":{"9003":[65537]}},"5850":1,"5851":120}`,
			want: Group{ID: 131073, Name: "Living room", Devices: []int{65537}, On: true, Brightness: intPtr(120)},
		},
		{
			name: "no members",
			in:   `{"9003":3,"9001":"Empty"}`,
			want: Group{ID: 3, Name: "Empty", Devices: []int{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TransformGroup(mustParse(t, tt.in))
			if err != nil {
				t.Fatalf("TransformGroup() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TransformGroup() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTransformGroup_Errors(t *testing.T) {
	for _, in := range []string{
		`{"9001":"No id"}`,
		`{"9003":2,"9018":{"15002":{"9003":"1,2"}}}`,
		`{"9003":2,"9018":{"15002":{"9003":[1,"two"]}}}`,
		`{"9003":2,"9018":"members"}`,
		`{"9003":2,"5850":"off"}`,
	} {
		if _, err := TransformGroup(mustParse(t, in)); !errors.Is(err, ErrDataTransform) {
			t.Errorf("TransformGroup(%s) error = %v, want ErrDataTransform", in, err)
		}
	}
}

func TestTransformIdentity(t *testing.T) {
	id, err := TransformIdentity(mustParse(t, `{"9091":"abcdefgh12345678","9029":"1.3.0014"}`), "graylogic-1")
	if err != nil {
		t.Fatalf("TransformIdentity() error = %v", err)
	}
	if id.Username != "graylogic-1" || id.SecurityID != "abcdefgh12345678" {
		t.Errorf("TransformIdentity() = %+v", id)
	}

	for _, in := range []string{`{}`, `{"9091":123}`, `"abc"`} {
		if _, err := TransformIdentity(mustParse(t, in), "x"); !errors.Is(err, ErrDataTransform) {
			t.Errorf("TransformIdentity(%s) error = %v, want ErrDataTransform", in, err)
		}
	}
}

func TestTransformIDs(t *testing.T) {
	ids, err := TransformIDs(mustParse(t, `[]`))
	if err != nil || len(ids) != 0 {
		t.Errorf("TransformIDs([]) = %v, %v", ids, err)
	}

	for _, in := range []string{`{"9003":1}`, `[1,"2"]`, `null`} {
		if _, err := TransformIDs(mustParse(t, in)); !errors.Is(err, ErrDataTransform) {
			t.Errorf("TransformIDs(%s) error = %v, want ErrDataTransform", in, err)
		}
	}
}

func TestRawPayload_Accessors(t *testing.T) {
	p := mustParse(t, `{"a":{"b":[10,{"c":"x"}]},"f":false,"z":0}`)

	if v, ok, err := p.Int("a", "b", "0"); v != 10 || !ok || err != nil {
		t.Errorf("Int(a/b/0) = %v, %v, %v", v, ok, err)
	}
	if v, ok, err := p.String("a", "b", "1", "c"); v != "x" || !ok || err != nil {
		t.Errorf("String(a/b/1/c) = %v, %v, %v", v, ok, err)
	}
	if _, ok, err := p.Int("a", "b", "5"); ok || err != nil {
		t.Errorf("out of range index should be absent, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := p.Int("missing", "deeper"); ok || err != nil {
		t.Errorf("missing path should be absent, got ok=%v err=%v", ok, err)
	}
	if _, _, err := p.Int("a", "b", "x"); !errors.Is(err, ErrDataTransform) {
		t.Errorf("non-numeric index error = %v, want ErrDataTransform", err)
	}
	if _, _, err := p.Int("a", "b", "1", "c", "d"); !errors.Is(err, ErrDataTransform) {
		t.Errorf("descending into a string error = %v, want ErrDataTransform", err)
	}

	// false and 0 are present values, not absence.
	if v, ok, err := p.Bool("f"); v || !ok || err != nil {
		t.Errorf("Bool(f) = %v, %v, %v", v, ok, err)
	}
	if v, ok, err := p.Bool("z"); v || !ok || err != nil {
		t.Errorf("Bool(z) = %v, %v, %v", v, ok, err)
	}
	if _, ok, _ := p.Bool("nope"); ok {
		t.Error("Bool(nope) should be absent")
	}

	node, ok, err := p.Node("a")
	if !ok || err != nil {
		t.Fatalf("Node(a) = %v, %v", ok, err)
	}
	if v, _, _ := node.Int("b", "0"); v != 10 {
		t.Errorf("Node(a).Int(b/0) = %d", v)
	}

	if !(RawPayload{}).IsEmpty() || p.IsEmpty() {
		t.Error("IsEmpty mismatch")
	}
}

func TestParsePayload_RejectsTrailingData(t *testing.T) {
	if _, err := ParsePayload([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Error("expected error for two JSON values")
	}
}
