package db

import (
	"testing"
)

func TestVectorValue(t *testing.T) {
	got, err := Vector{1, -0.5, 0.25}.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if got != "[1,-0.5,0.25]" {
		t.Errorf("Value = %v, want [1,-0.5,0.25]", got)
	}

	empty, _ := Vector{}.Value()
	if empty != "[]" {
		t.Errorf("empty Value = %v, want []", empty)
	}
}

func TestVectorScan(t *testing.T) {
	tests := []struct {
		src  any
		want Vector
	}{
		{"[1,2,3]", Vector{1, 2, 3}},
		{[]byte("[0.5, -1]"), Vector{0.5, -1}},
		{"[]", Vector{}},
	}
	for _, tt := range tests {
		var v Vector
		if err := v.Scan(tt.src); err != nil {
			t.Fatalf("Scan(%v) failed: %v", tt.src, err)
		}
		if len(v) != len(tt.want) {
			t.Fatalf("Scan(%v) = %v, want %v", tt.src, v, tt.want)
		}
		for i := range v {
			if v[i] != tt.want[i] {
				t.Errorf("Scan(%v)[%d] = %v, want %v", tt.src, i, v[i], tt.want[i])
			}
		}
	}

	var v Vector
	for _, bad := range []any{"1,2", 42, "[a]"} {
		if err := v.Scan(bad); err == nil {
			t.Errorf("Scan(%v) should fail", bad)
		}
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	if _, err := Connect("mysql", "dsn"); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := Connect("pgx", ""); err == nil {
		t.Error("expected error for empty dsn")
	}
}
