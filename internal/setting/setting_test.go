/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package setting

import "testing"

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		value   Value
		wantErr bool
	}{
		{"i32 in range", I32Spec(1, 10), I32Value(5), false},
		{"i32 below min", I32Spec(1, 10), I32Value(0), true},
		{"i32 above max", I32Spec(1, 10), I32Value(11), true},
		{"f64 in range", F64Spec(0, 1), F64Value(0.5), false},
		{"f64 out of range", F64Spec(0, 1), F64Value(1.5), true},
		{"kind mismatch", I32Spec(1, 10), F64Value(5), true},
		{"str always valid", StrSpec(), StrValue("anything"), false},
		{"bool always valid", BoolSpec(), BoolValue(true), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettingSetFromValueFailsClosed(t *testing.T) {
	s := New("width", I32Spec(1, 100), true, I32Value(50))

	if err := s.SetFromValue(I32Value(200)); err == nil {
		t.Fatal("expected out-of-range update to fail")
	}
	got, err := s.AsI32()
	if err != nil {
		t.Fatal(err)
	}
	if got != 50 {
		t.Fatalf("current value changed after failed update: got %d, want 50", got)
	}

	if err := s.SetFromValue(I32Value(75)); err != nil {
		t.Fatalf("valid update failed: %v", err)
	}
	got, _ = s.AsI32()
	if got != 75 {
		t.Fatalf("valid update did not apply: got %d, want 75", got)
	}
}

func TestSettingAsCoercionMismatch(t *testing.T) {
	s := New("fallback-image", StrSpec(), false, StrValue("x.png"))
	if _, err := s.AsI32(); err == nil {
		t.Fatal("expected AsI32 on a str setting to fail")
	}
	if v, err := s.AsStr(); err != nil || v != "x.png" {
		t.Fatalf("AsStr() = %q, %v; want x.png, nil", v, err)
	}
}

func TestNewPanicsOnInvalidDefault(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic constructing a Setting with an invalid default")
		}
	}()
	New("bad", I32Spec(1, 10), true, I32Value(999))
}

func TestDefaultMixerSettings(t *testing.T) {
	reg := DefaultMixerSettings()

	cases := []struct {
		name         string
		wantKind     Kind
		wantI32      int32
		controllable bool
	}{
		{"width", KindI32, 1920, true},
		{"height", KindI32, 1080, true},
		{"sample-rate", KindI32, 48000, false},
		{"fallback-timeout", KindI32, 500, true},
	}
	for _, tc := range cases {
		s := reg.Get(tc.name)
		if s == nil {
			t.Fatalf("setting %q not found", tc.name)
		}
		if s.Name != tc.name {
			t.Fatalf("setting %q: Name field = %q, want %q (regression test for the source's height/sample-rate name swap bug)", tc.name, s.Name, tc.name)
		}
		if s.Controllable != tc.controllable {
			t.Fatalf("setting %q: Controllable = %v, want %v", tc.name, s.Controllable, tc.controllable)
		}
		got, err := s.AsI32()
		if err != nil {
			t.Fatalf("setting %q: AsI32: %v", tc.name, err)
		}
		if got != tc.wantI32 {
			t.Fatalf("setting %q: default = %d, want %d", tc.name, got, tc.wantI32)
		}
	}

	fallbackImage := reg.Get("fallback-image")
	if fallbackImage == nil {
		t.Fatal("fallback-image setting not found")
	}
	if v, err := fallbackImage.AsStr(); err != nil || v != "" {
		t.Fatalf("fallback-image default = %q, %v; want \"\", nil", v, err)
	}
}

func TestMixerSettingsAppliesOperatorDefaults(t *testing.T) {
	reg, err := MixerSettings(1280, 720, 44100, "plate.png", 250)
	if err != nil {
		t.Fatal(err)
	}
	if w, _ := reg.Get("width").AsI32(); w != 1280 {
		t.Fatalf("width = %d, want 1280", w)
	}
	if h, _ := reg.Get("height").AsI32(); h != 720 {
		t.Fatalf("height = %d, want 720", h)
	}
	if img, _ := reg.Get("fallback-image").AsStr(); img != "plate.png" {
		t.Fatalf("fallback-image = %q, want plate.png", img)
	}
}

func TestMixerSettingsRejectsOutOfRangeDefaults(t *testing.T) {
	if _, err := MixerSettings(0, 1080, 48000, "", 500); err == nil {
		t.Fatal("expected width=0 to be rejected")
	}
	if _, err := MixerSettings(1920, 1080, 48000, "", -1); err == nil {
		t.Fatal("expected a negative fallback-timeout to be rejected")
	}
}

func TestRegistrySnapshot(t *testing.T) {
	reg := DefaultMixerSettings()
	snap := reg.Snapshot()
	if len(snap) != len(reg.Names()) {
		t.Fatalf("snapshot has %d entries, registry has %d names", len(snap), len(reg.Names()))
	}
	if _, ok := snap["width"]; !ok {
		t.Fatal("snapshot missing width")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := DefaultMixerSettings()
	if reg.Get("does-not-exist") != nil {
		t.Fatal("expected nil for unknown setting")
	}
}
